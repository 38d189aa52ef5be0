// Package remote implements the HTTP client for the archival item service
// (C1) and parses its responses into comparable in-memory views (C3's
// remote half): metadata, file listing, and the cover-art index document.
package remote

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SourceKind classifies a file entry as the original upload or a derived
// rendition (spec §3).
type SourceKind string

const (
	SourceOriginal   SourceKind = "original"
	SourceDerivative SourceKind = "derivative"
)

// FileEntry is one entry of the remote item's file listing.
type FileEntry struct {
	OriginalName string
	Name         string // logical name, history/ prefix and ~N~ suffix stripped
	Source       SourceKind
	Original     string // optional reference to the original this was derived from
	IsHistorical bool
	RevNo        *int
	MTime        time.Time
}

var revnoPattern = regexp.MustCompile(`~(\d+)~$`)

const historyPrefix = "history/files/"

func parseFileEntry(raw map[string]any) FileEntry {
	fe := FileEntry{}
	fe.OriginalName, _ = raw["name"].(string)
	fe.Name = fe.OriginalName

	source, _ := raw["source"].(string)
	if source == string(SourceDerivative) {
		fe.Source = SourceDerivative
	} else {
		fe.Source = SourceOriginal
	}
	fe.Original, _ = raw["original"].(string)

	if strings.HasPrefix(fe.OriginalName, historyPrefix) {
		fe.IsHistorical = true
		fe.Name = strings.TrimPrefix(fe.OriginalName, historyPrefix)
		if m := revnoPattern.FindStringSubmatch(fe.Name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				fe.RevNo = &n
			}
			fe.Name = revnoPattern.ReplaceAllString(fe.Name, "")
		}
	}

	if mtimeRaw, ok := raw["mtime"]; ok {
		switch v := mtimeRaw.(type) {
		case float64:
			fe.MTime = time.Unix(int64(v), 0).UTC()
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				fe.MTime = time.Unix(n, 0).UTC()
			}
		}
	}
	return fe
}

// FileIndex indexes a remote item's files three ways: by logical name to
// original, by logical name to derivative, and by logical name to the list
// of historical revisions (spec §3).
type FileIndex struct {
	originals   map[string]FileEntry
	derivatives map[string]FileEntry
	history     map[string][]FileEntry
	all         []FileEntry
}

// BuildFileIndex indexes a raw files list from metadata.json.
func BuildFileIndex(rawFiles []any) *FileIndex {
	idx := &FileIndex{
		originals:   make(map[string]FileEntry),
		derivatives: make(map[string]FileEntry),
		history:     make(map[string][]FileEntry),
	}
	for _, rf := range rawFiles {
		m, ok := rf.(map[string]any)
		if !ok {
			continue
		}
		fe := parseFileEntry(m)
		idx.all = append(idx.all, fe)
		switch {
		case fe.IsHistorical:
			idx.history[fe.Name] = append(idx.history[fe.Name], fe)
		case fe.Source == SourceDerivative:
			idx.derivatives[fe.Name] = fe
		default:
			idx.originals[fe.Name] = fe
		}
	}
	return idx
}

func (fi *FileIndex) HasOriginal(name string) bool {
	_, ok := fi.originals[name]
	return ok
}

func (fi *FileIndex) Original(name string) (FileEntry, bool) {
	fe, ok := fi.originals[name]
	return fe, ok
}

func (fi *FileIndex) HasDerivative(name string) bool {
	_, ok := fi.derivatives[name]
	return ok
}

func (fi *FileIndex) HasHistorical(name string) bool {
	_, ok := fi.history[name]
	return ok
}

// FindOriginals returns every original file entry matching the predicate.
func (fi *FileIndex) FindOriginals(pred func(FileEntry) bool) []FileEntry {
	var out []FileEntry
	for _, fe := range fi.originals {
		if pred(fe) {
			out = append(out, fe)
		}
	}
	return out
}

// HasAnyOriginal reports whether any original file matches the predicate.
func (fi *FileIndex) HasAnyOriginal(pred func(FileEntry) bool) bool {
	for _, fe := range fi.originals {
		if pred(fe) {
			return true
		}
	}
	return false
}

// Originals returns every original file entry, order unspecified.
func (fi *FileIndex) Originals() []FileEntry {
	out := make([]FileEntry, 0, len(fi.originals))
	for _, fe := range fi.originals {
		out = append(out, fe)
	}
	return out
}

// HasAnyDerivative reports whether any derivative name matches the predicate.
func (fi *FileIndex) HasAnyDerivative(pred func(name string) bool) bool {
	for name := range fi.derivatives {
		if pred(name) {
			return true
		}
	}
	return false
}

// MetaFields is the normalized metadata dict of a remote item (spec §3).
type MetaFields struct {
	ExternalIDs map[string]struct{}
	Collections []string
	IsNoIndex   bool
	Mediatype   string
	Title       string
	Creators    []string
	Date        string
	Language    string
}

// asList lifts a metadata field that may arrive as a single scalar or a
// list into a list, normalizing at the edge (spec §4.3, Design Notes).
func asList(v any) []any {
	if v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

func toStringList(v any) []string {
	raw := asList(v)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseMetaFields(raw map[string]any) MetaFields {
	mf := MetaFields{ExternalIDs: make(map[string]struct{})}
	for _, id := range toStringList(raw["external-identifier"]) {
		mf.ExternalIDs[id] = struct{}{}
	}
	mf.Collections = toStringList(raw["collection"])
	if v, ok := raw["noindex"].(bool); ok {
		mf.IsNoIndex = v
	}
	mf.Mediatype, _ = raw["mediatype"].(string)
	mf.Title, _ = raw["title"].(string)
	mf.Creators = toStringList(raw["creator"])
	mf.Date, _ = raw["date"].(string)
	mf.Language, _ = raw["language"].(string)
	return mf
}

// Metadata is the remote metadata.json view (spec §3).
type Metadata struct {
	IsDark       bool
	LastModified time.Time
	Files        *FileIndex
	Meta         MetaFields
	HasMeta      bool
}

// ParseMetadata parses a fetched, non-empty metadata.json body. If IsDark is
// true, Files/Meta are absent per the invariant in spec §3.
func ParseMetadata(raw map[string]any) *Metadata {
	m := &Metadata{}
	if v, ok := raw["is_dark"].(bool); ok {
		m.IsDark = v
	}
	if v, ok := raw["item_last_updated"]; ok {
		switch t := v.(type) {
		case float64:
			m.LastModified = time.Unix(int64(t), 0).UTC()
		case string:
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				m.LastModified = time.Unix(n, 0).UTC()
			}
		}
	}
	if m.IsDark {
		return m
	}
	files, _ := raw["files"].([]any)
	m.Files = BuildFileIndex(files)
	if metaRaw, ok := raw["metadata"].(map[string]any); ok {
		m.Meta = parseMetaFields(metaRaw)
		m.HasMeta = true
	}
	return m
}

// IndexImage is one entry of the remote cover-art index document, kept as a
// raw map since its shape is itself a checked property (spec §4.1).
type IndexImage struct {
	Raw map[string]any
}

// ID attempts to read the image's id as an int, accepting a numeric string
// for schema-drifted older records (spec Design Notes).
func (ii IndexImage) ID() (int, bool) {
	v, ok := ii.Raw["id"]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// IDIsNativeInt reports whether the raw id field was already a JSON number.
func (ii IndexImage) IDIsNativeInt() bool {
	_, ok := ii.Raw["id"].(float64)
	return ok
}

// IndexDocument is the parsed remote index.json (spec §3).
type IndexDocument struct {
	Keys    map[string]struct{}
	Release string
	Images  []IndexImage
}

// ParseIndexDocument records the root object's keys and extracts its release
// string and images list; it does not validate them. The caller checks the
// shape and decides which failures are fatal to further checking (spec
// §4.4.1's CAAIndex stage).
func ParseIndexDocument(root map[string]any) *IndexDocument {
	doc := &IndexDocument{Keys: make(map[string]struct{}, len(root))}
	for k := range root {
		doc.Keys[k] = struct{}{}
	}
	doc.Release, _ = root["release"].(string)
	if imagesRaw, ok := root["images"].([]any); ok {
		for _, img := range imagesRaw {
			if m, ok := img.(map[string]any); ok {
				doc.Images = append(doc.Images, IndexImage{Raw: m})
			} else {
				doc.Images = append(doc.Images, IndexImage{Raw: nil})
			}
		}
	}
	return doc
}

// RequiredIndexKeys is the exact key set spec.md requires of the index
// document's root object.
var RequiredIndexKeys = map[string]struct{}{"release": {}, "images": {}}
