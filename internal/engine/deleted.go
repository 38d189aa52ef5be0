package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ROpdebee/CAA-Auditor/internal/checks"
	"github.com/ROpdebee/CAA-Auditor/internal/remote"
)

var deletedImageExts = map[string]bool{"png": true, "jpg": true, "gif": true, "pdf": true}

// runDeletedChecks implements the Deleted/Merged comparisons for
// possibly_deleted/merged items (spec §4.4.2).
func (t *Task) runDeletedChecks(c *checks.Checker, meta *remote.Metadata) {
	mbid := t.Record.ID
	files := meta.Files

	hadIndex := files != nil && (files.HasOriginal("index.json") || files.HasHistorical("index.json"))
	if !c.CheckSkip("test item", hadIndex,
		"item never had an index.json, treating as test-only item", nil) {
		return
	}

	c.Check("index is absent", files == nil || !files.HasOriginal("index.json"),
		"index.json is still present", nil)

	imagesPrefix := fmt.Sprintf("mbid-%s-", mbid)
	hasImages := files != nil && files.HasAnyOriginal(func(fe remote.FileEntry) bool {
		if !strings.HasPrefix(fe.Name, imagesPrefix) {
			return false
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fe.Name), "."))
		return deletedImageExts[ext]
	})
	c.Check("images are absent", !hasImages, "images for this item are still present", nil)

	hasDerivatives := files != nil && files.HasAnyDerivative(func(name string) bool {
		return strings.HasPrefix(name, imagesPrefix)
	})
	c.Check("derivatives are absent", !hasDerivatives, "derivatives for this item are still present", nil)

	metaXML := fmt.Sprintf("mbid-%s_mb_metadata.xml", mbid)
	mbMetaPresent := files != nil && files.HasOriginal(metaXML)
	c.Check("mb_metadata is absent", !mbMetaPresent, fmt.Sprintf("%s is still present", metaXML), nil)

	if t.Record.State == "possibly_deleted" {
		releaseURN := fmt.Sprintf("urn:mb_release_id:%s", mbid)
		_, present := meta.Meta.ExternalIDs[releaseURN]
		c.Check("release url is absent", !present, releaseURN+" is still attached to this item", nil)
	}
}
