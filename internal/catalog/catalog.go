// Package catalog parses the JSONL input stream (the catalog's view of a
// release, as produced by the out-of-scope extraction ETL) into comparable
// in-memory views (spec §3, §4.3).
package catalog

import (
	"encoding/json"
	"fmt"
)

// MetaRecord is the required first line of the input stream.
type MetaRecord struct {
	State           string `json:"state"`
	Count           int    `json:"count"`
	MaxLastModified int64  `json:"max_last_modified"`
}

// ParseMetaRecord parses and validates the first input line.
func ParseMetaRecord(line []byte) (MetaRecord, error) {
	var m MetaRecord
	if err := json.Unmarshal(line, &m); err != nil {
		return MetaRecord{}, fmt.Errorf("parsing meta record: %w", err)
	}
	if m.State != "meta" {
		return MetaRecord{}, fmt.Errorf("expected first line state %q, got %q", "meta", m.State)
	}
	return m, nil
}

// Artist is one credited release artist.
type Artist struct {
	Name string `json:"artist_name"`
	GID  string `json:"artist_gid"`
}

// View is the catalog's reference record for one release (the "data" field
// of an active/empty task record).
type View struct {
	ReleaseGID   string   `json:"release_gid"`
	ReleaseName  string   `json:"release_name"`
	Artists      []Artist `json:"artists"`
	ReleaseDates []string `json:"release_dates"`
	LanguageCode string   `json:"language_code"`
	Barcode      string   `json:"barcode"`
	ASINs        []string `json:"asins"`
	Images       []Image  `json:"images"`
}

// Record is one task line of the input stream.
type Record struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Data  *View  `json:"data,omitempty"`
}

// ParseRecord parses one task line.
func ParseRecord(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return Record{}, fmt.Errorf("parsing task record: %w", err)
	}
	return r, nil
}

// ArtistNames returns the artist names in catalog order.
func (v *View) ArtistNames() []string {
	names := make([]string, len(v.Artists))
	for i, a := range v.Artists {
		names[i] = a.Name
	}
	return names
}

// ImageIDs returns the catalog image IDs in catalog order.
func (v *View) ImageIDs() []int {
	ids := make([]int, len(v.Images))
	for i, img := range v.Images {
		ids[i] = img.ID
	}
	return ids
}

// ExpectedExternalIDs builds the set of urn:... external identifiers the
// remote item's metadata is expected to carry (spec §4.4.1).
func (v *View) ExpectedExternalIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	ids[fmt.Sprintf("urn:mb_release_id:%s", v.ReleaseGID)] = struct{}{}
	for _, a := range v.Artists {
		ids[fmt.Sprintf("urn:mb_artist_id:%s", a.GID)] = struct{}{}
	}
	for _, asin := range v.ASINs {
		ids[fmt.Sprintf("urn:asin:%s", asin)] = struct{}{}
	}
	if v.Barcode != "" {
		ids[fmt.Sprintf("urn:upc:%s", v.Barcode)] = struct{}{}
	}
	return ids
}

// ReleaseURN is the urn:mb_release_id external identifier that ties a remote
// item back to this release.
func (v *View) ReleaseURN() string {
	return fmt.Sprintf("urn:mb_release_id:%s", v.ReleaseGID)
}

// Image is one catalog-declared cover image, with the derived filenames and
// the expected index.json shape for that image.
type Image struct {
	ID     int            `json:"id"`
	Suffix string         `json:"suffix"`
	Extra  map[string]any `json:"-"`
}

// UnmarshalJSON captures the well-known id/suffix fields and carries every
// other catalog field through to Extra, so AsDict can reproduce them in the
// expected index-entry shape (spec §3).
func (img *Image) UnmarshalJSON(data []byte) error {
	raw := make(map[string]any)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if idVal, ok := raw["id"]; ok {
		switch v := idVal.(type) {
		case float64:
			img.ID = int(v)
		}
	}
	if suffix, ok := raw["suffix"].(string); ok {
		img.Suffix = suffix
	}
	delete(raw, "id")
	delete(raw, "suffix")
	img.Extra = raw
	return nil
}

// OriginalName is the canonical filename of the full-size image
// (mbid-<MBID>-<id>.<suffix>).
func (img *Image) OriginalName(mbid string) string {
	return fmt.Sprintf("mbid-%s-%d.%s", mbid, img.ID, img.Suffix)
}

// ThumbnailName is one of the three derived thumbnail filenames.
func (img *Image) ThumbnailName(mbid string, size int) string {
	return fmt.Sprintf("mbid-%s-%d_thumb%d.jpg", mbid, img.ID, size)
}

var thumbnailSizes = []int{250, 500, 1200}

// AsDict returns the expected index.json entry shape for this image: the
// image URL, the five-key thumbnails mapping, and every other catalog field
// carried through (minus suffix). The top-level "id" field is restored so
// callers can compare full entries (spec §3).
func (img *Image) AsDict(mbid string) map[string]any {
	d := make(map[string]any, len(img.Extra)+3)
	for k, v := range img.Extra {
		d[k] = v
	}
	d["id"] = img.ID
	d["image"] = fmt.Sprintf("http://coverartarchive.org/release/%s/%d.%s", mbid, img.ID, img.Suffix)
	thumbnails := map[string]string{
		"small": fmt.Sprintf("http://coverartarchive.org/release/%s/%d-250.jpg", mbid, img.ID),
		"large": fmt.Sprintf("http://coverartarchive.org/release/%s/%d-500.jpg", mbid, img.ID),
	}
	for _, size := range thumbnailSizes {
		thumbnails[fmt.Sprintf("%d", size)] = fmt.Sprintf("http://coverartarchive.org/release/%s/%d-%d.jpg", mbid, img.ID, size)
	}
	d["thumbnails"] = thumbnails
	return d
}
