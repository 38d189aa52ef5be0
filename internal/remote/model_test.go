package remote

import "testing"

func TestBuildFileIndexClassifiesEntries(t *testing.T) {
	raw := []any{
		map[string]any{"name": "mbid-1-1.jpg", "source": "original", "mtime": float64(1000)},
		map[string]any{"name": "mbid-1-1_thumb250.jpg", "source": "derivative"},
		map[string]any{"name": "history/files/mbid-1-1.jpg~3~", "source": "original"},
		"not a map",
	}
	idx := BuildFileIndex(raw)

	if !idx.HasOriginal("mbid-1-1.jpg") {
		t.Fatal("expected original to be indexed")
	}
	if !idx.HasDerivative("mbid-1-1_thumb250.jpg") {
		t.Fatal("expected derivative to be indexed")
	}
	if !idx.HasHistorical("mbid-1-1.jpg") {
		t.Fatal("expected historical revision to be indexed under its stripped name")
	}

	fe, ok := idx.Original("mbid-1-1.jpg")
	if !ok || fe.MTime.Unix() != 1000 {
		t.Fatalf("unexpected original entry: %+v", fe)
	}
}

func TestParseFileEntryStripsRevisionSuffix(t *testing.T) {
	fe := parseFileEntry(map[string]any{"name": "history/files/cover.jpg~12~", "source": "original"})
	if fe.Name != "cover.jpg" {
		t.Fatalf("expected stripped name, got %q", fe.Name)
	}
	if fe.RevNo == nil || *fe.RevNo != 12 {
		t.Fatalf("expected revno 12, got %v", fe.RevNo)
	}
}

func TestParseMetadataDarkItemOmitsFilesAndMeta(t *testing.T) {
	m := ParseMetadata(map[string]any{"is_dark": true, "item_last_updated": float64(1700000000)})
	if !m.IsDark {
		t.Fatal("expected IsDark")
	}
	if m.Files != nil || m.HasMeta {
		t.Fatalf("expected no files/meta on a dark item, got %+v", m)
	}
}

func TestParseMetadataParsesFilesAndMeta(t *testing.T) {
	raw := map[string]any{
		"is_dark":           false,
		"item_last_updated": "1700000000",
		"files": []any{
			map[string]any{"name": "mbid-1-1.jpg", "source": "original"},
		},
		"metadata": map[string]any{
			"external-identifier": "urn:mb_release_id:aaaa",
			"collection":          []any{"coverartarchive", "other"},
			"noindex":             true,
			"mediatype":           "image",
			"title":               "X",
			"creator":             []any{"A", "B"},
			"date":                "2020",
			"language":            "eng",
		},
	}
	m := ParseMetadata(raw)
	if m.IsDark {
		t.Fatal("expected not dark")
	}
	if !m.HasMeta {
		t.Fatal("expected meta to be parsed")
	}
	if _, ok := m.Meta.ExternalIDs["urn:mb_release_id:aaaa"]; !ok {
		t.Fatalf("expected scalar external-identifier to be lifted into a list, got %+v", m.Meta.ExternalIDs)
	}
	if len(m.Meta.Collections) != 2 || !m.Meta.IsNoIndex || m.Meta.Mediatype != "image" {
		t.Fatalf("unexpected meta fields: %+v", m.Meta)
	}
	if !m.Files.HasOriginal("mbid-1-1.jpg") {
		t.Fatal("expected files to be indexed")
	}
}

func TestIndexImageID(t *testing.T) {
	native := IndexImage{Raw: map[string]any{"id": float64(3)}}
	id, ok := native.ID()
	if !ok || id != 3 || !native.IDIsNativeInt() {
		t.Fatalf("unexpected native id result: %d %v", id, ok)
	}

	stringy := IndexImage{Raw: map[string]any{"id": "4"}}
	id, ok = stringy.ID()
	if !ok || id != 4 || stringy.IDIsNativeInt() {
		t.Fatalf("unexpected stringy id result: %d %v", id, ok)
	}

	missing := IndexImage{Raw: map[string]any{}}
	if _, ok := missing.ID(); ok {
		t.Fatal("expected no id to be found")
	}
}

func TestParseIndexDocument(t *testing.T) {
	root := map[string]any{
		"release": "https://musicbrainz.org/release/aaaa",
		"images": []any{
			map[string]any{"id": float64(1)},
			"garbage",
		},
	}
	doc := ParseIndexDocument(root)
	if doc.Release != "https://musicbrainz.org/release/aaaa" {
		t.Fatalf("unexpected release: %q", doc.Release)
	}
	if len(doc.Images) != 2 {
		t.Fatalf("expected 2 image entries, got %d", len(doc.Images))
	}
	if doc.Images[1].Raw != nil {
		t.Fatalf("expected malformed image entry to have nil Raw, got %+v", doc.Images[1])
	}
	if _, ok := doc.Keys["release"]; !ok {
		t.Fatal("expected release key to be recorded")
	}
}
