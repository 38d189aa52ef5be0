package catalog

import "testing"

func TestParseMetaRecordRequiresMetaState(t *testing.T) {
	_, err := ParseMetaRecord([]byte(`{"state":"active","count":1}`))
	if err == nil {
		t.Fatal("expected error for non-meta first line")
	}

	m, err := ParseMetaRecord([]byte(`{"state":"meta","count":3,"max_last_modified":1700000000}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Count != 3 || m.MaxLastModified != 1700000000 {
		t.Fatalf("unexpected meta record: %+v", m)
	}
}

func TestParseRecordActiveHasData(t *testing.T) {
	line := []byte(`{"id":"aaaa","state":"active","data":{"release_gid":"aaaa","release_name":"X",
		"artists":[{"artist_name":"A","artist_gid":"1111"}],"release_dates":["2020"],
		"language_code":"eng","asins":[],"images":[{"id":1,"suffix":"jpg","edit":42}]}}`)
	r, err := ParseRecord(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Data == nil {
		t.Fatal("expected data to be present")
	}
	if r.Data.Images[0].Extra["edit"].(float64) != 42 {
		t.Fatalf("expected extra field carried through, got %+v", r.Data.Images[0].Extra)
	}
}

func TestImageAsDictShape(t *testing.T) {
	img := Image{ID: 1, Suffix: "jpg", Extra: map[string]any{"front": true}}
	d := img.AsDict("aaaa-bbbb")
	if d["image"] != "http://coverartarchive.org/release/aaaa-bbbb/1.jpg" {
		t.Fatalf("unexpected image url: %v", d["image"])
	}
	thumbs, ok := d["thumbnails"].(map[string]string)
	if !ok {
		t.Fatalf("expected thumbnails map, got %T", d["thumbnails"])
	}
	for _, k := range []string{"small", "large", "250", "500", "1200"} {
		if _, ok := thumbs[k]; !ok {
			t.Fatalf("missing thumbnail key %q", k)
		}
	}
	if d["front"] != true {
		t.Fatalf("expected extra field to survive, got %v", d["front"])
	}
	if _, ok := d["suffix"]; ok {
		t.Fatal("suffix should be removed from the expected shape")
	}
}

func TestExpectedExternalIDs(t *testing.T) {
	v := View{
		ReleaseGID: "aaaa",
		Artists:    []Artist{{Name: "A", GID: "1111"}},
		ASINs:      []string{"B0001"},
		Barcode:    "0123456",
	}
	ids := v.ExpectedExternalIDs()
	for _, want := range []string{
		"urn:mb_release_id:aaaa",
		"urn:mb_artist_id:1111",
		"urn:asin:B0001",
		"urn:upc:0123456",
	} {
		if _, ok := ids[want]; !ok {
			t.Errorf("missing expected id %q in %v", want, ids)
		}
	}
}
