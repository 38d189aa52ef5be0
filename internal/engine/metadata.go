package engine

import (
	"fmt"
	"strings"

	"github.com/ROpdebee/CAA-Auditor/internal/catalog"
	"github.com/ROpdebee/CAA-Auditor/internal/checks"
	"github.com/ROpdebee/CAA-Auditor/internal/remote"
)

// runMetadataChecks implements the Metadata:: comparisons (spec §4.4.1).
func runMetadataChecks(c *checks.Checker, mf remote.MetaFields, cat *catalog.View) {
	c.Check("Metadata::in caa collection", containsString(mf.Collections, "coverartarchive"),
		fmt.Sprintf("expected coverartarchive in collections, got %v", mf.Collections), mf.Collections)

	c.Check("Metadata::item is noindex", mf.IsNoIndex,
		"expected item to be set to noindex", mf.IsNoIndex)

	c.Check("Metadata::mediatype is image", mf.Mediatype == "image",
		fmt.Sprintf("expected mediatype image, got %s", mf.Mediatype), mf.Mediatype)

	c.Check("Metadata::title correct", mf.Title == cat.ReleaseName,
		fmt.Sprintf("expected title %s, got %s", cat.ReleaseName, mf.Title), mf.Title)

	expectedCreators := cat.ArtistNames()
	c.Check("Metadata::creators correct", equalStringSlices(mf.Creators, expectedCreators),
		fmt.Sprintf("expected creators %v, got %v", expectedCreators, mf.Creators), mf.Creators)

	hasExpectedDate := len(cat.ReleaseDates) > 0
	hasActualDate := mf.Date != ""
	dateMatches := hasExpectedDate == hasActualDate && containsString(cat.ReleaseDates, mf.Date)
	c.Check("Metadata::date correct", dateMatches,
		fmt.Sprintf("expected date in %v, got %s", cat.ReleaseDates, mf.Date), mf.Date)

	c.Check("Metadata::language correct", mf.Language == cat.LanguageCode,
		fmt.Sprintf("expected language %s, got %s", cat.LanguageCode, mf.Language), mf.Language)

	expectedIDs := cat.ExpectedExternalIDs()
	for id := range mf.ExternalIDs {
		_, expected := expectedIDs[id]
		c.Check(fmt.Sprintf("Metadata::unexpected external id::%s", urnType(id)), expected,
			fmt.Sprintf("%s should not be attached to this item", id), id)
	}
	for id := range expectedIDs {
		_, observed := mf.ExternalIDs[id]
		c.Check(fmt.Sprintf("Metadata::missing external id::%s", urnType(id)), observed,
			fmt.Sprintf("%s is not attached to this item, but should be", id), id)
	}
}

// urnType returns the 2nd `:`-segment of an external-id URN, e.g. "mb_release_id"
// for "urn:mb_release_id:aaaa" (spec §4.4.1).
func urnType(urn string) string {
	parts := strings.SplitN(urn, ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalIntSlices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
