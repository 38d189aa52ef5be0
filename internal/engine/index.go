package engine

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/ROpdebee/CAA-Auditor/internal/catalog"
	"github.com/ROpdebee/CAA-Auditor/internal/checks"
	"github.com/ROpdebee/CAA-Auditor/internal/remote"
)

// runIndexChecks implements the CAAIndex:: comparisons (spec §4.4.1).
func runIndexChecks(c *checks.Checker, raw []byte, cat *catalog.View, mbid string) {
	if !c.Check("CAAIndex::is present", raw != nil,
		"index.json not present, aborting rest of checks", nil) {
		return
	}

	var root map[string]any
	parseErr := json.Unmarshal(raw, &root)
	if !c.Check("CAAIndex::is well-formed", parseErr == nil && root != nil,
		fmt.Sprintf("index.json not well-formed: %v", parseErr), nil) {
		return
	}

	doc := remote.ParseIndexDocument(root)

	hasAllKeys := true
	for k := range remote.RequiredIndexKeys {
		if _, ok := doc.Keys[k]; !ok {
			hasAllKeys = false
		}
	}
	if !c.Check("CAAIndex::has all keys", hasAllKeys,
		"missing required keys in index.json root", nil) {
		return
	}
	c.Check("CAAIndex::unexpected key", len(doc.Keys) == len(remote.RequiredIndexKeys),
		"unexpected keys in index.json root", nil)

	expectedRelease := fmt.Sprintf("https://musicbrainz.org/release/%s", mbid)
	c.Check("CAAIndex::release url correct", doc.Release == expectedRelease,
		fmt.Sprintf("expected release url %s, got %s", expectedRelease, doc.Release), doc.Release)

	catByID := make(map[int]*catalog.Image, len(cat.Images))
	for i := range cat.Images {
		catByID[cat.Images[i].ID] = &cat.Images[i]
	}

	seen := make(map[int]int)
	var observedIDs []int

	for _, img := range doc.Images {
		_, hasID := img.Raw["id"]
		if !c.Check("CAAIndex::Image::is well-formed", img.Raw != nil && hasID,
			"image entry is not a well-formed object with an id", img.Raw) {
			continue
		}

		id, ok := img.ID()
		if !ok {
			c.Check("CAAIndex::Image::id is int", false,
				fmt.Sprintf("image id %v is not an integer and could not be converted", img.Raw["id"]), img.Raw["id"])
			continue
		}
		c.Check("CAAIndex::Image::id is int", img.IDIsNativeInt(),
			fmt.Sprintf("image id %v is a string, not a native integer", img.Raw["id"]), img.Raw["id"])
		observedIDs = append(observedIDs, id)
		seen[id]++

		catImg, expected := catByID[id]
		if !c.Check("CAAIndex::Image::unexpected image", expected,
			fmt.Sprintf("image %d not present in catalog", id), id) {
			continue
		}

		expectedShape := catImg.AsDict(mbid)
		for k, v := range expectedShape {
			_, has := img.Raw[k]
			if !c.Check(fmt.Sprintf("CAAIndex::Image::has %s", k), has,
				fmt.Sprintf("expected key %s in image %d, but absent", k, id), nil) {
				continue
			}
			c.Check(fmt.Sprintf("CAAIndex::Image::%s correct", k), looseEqual(img.Raw[k], v),
				fmt.Sprintf("wrong %s for image %d", k, id), img.Raw[k])
		}
		for k := range img.Raw {
			if k == "id" {
				continue
			}
			if _, ok := expectedShape[k]; !ok {
				c.Check("CAAIndex::Image::unexpected key", false,
					fmt.Sprintf("unexpected key %s in image %d", k, id), k)
			}
		}
	}

	for id := range catByID {
		c.Check("CAAIndex::Image::missing image", seen[id] > 0,
			fmt.Sprintf("image %d missing from index.json", id), id)
	}
	for id, count := range seen {
		c.Check("CAAIndex::Image::image id is unique", count == 1,
			fmt.Sprintf("image %d appears %d times in index.json", id, count), id)
	}

	c.Check("CAAIndex::Image::order", equalIntSlices(observedIDs, cat.ImageIDs()),
		fmt.Sprintf("expected image order %v, got %v", cat.ImageIDs(), observedIDs), observedIDs)
}

// looseEqual compares a raw JSON-decoded value against an expected value
// built in Go-native types, normalizing numeric and map types so the two
// sides compare structurally (spec §8 invariant #8: order-insensitive for
// dicts, order-sensitive for the top-level images list).
func looseEqual(a, b any) bool {
	return reflect.DeepEqual(normalizeForComparison(a), normalizeForComparison(b))
}

func normalizeForComparison(v any) any {
	switch t := v.(type) {
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = vv
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = normalizeForComparison(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = normalizeForComparison(vv)
		}
		return s
	case int:
		return float64(t)
	default:
		return v
	}
}
