package engine

import (
	"fmt"
	"regexp"

	"github.com/ROpdebee/CAA-Auditor/internal/catalog"
	"github.com/ROpdebee/CAA-Auditor/internal/checks"
	"github.com/ROpdebee/CAA-Auditor/internal/remote"
)

var thumbSizes = []int{250, 500, 1200}

// runFilesChecks implements the Files:: comparisons (spec §4.4.1).
func runFilesChecks(c *checks.Checker, files *remote.FileIndex, cat *catalog.View, mbid string) {
	c.Check("Files::index.json exists", files.HasOriginal("index.json"),
		"index.json is not in item file list", nil)

	metaXML := fmt.Sprintf("mbid-%s_mb_metadata.xml", mbid)
	c.Check("Files::mb_metadata.xml exists", files.HasOriginal(metaXML),
		fmt.Sprintf("%s is not in item file list", metaXML), nil)

	for i := range cat.Images {
		img := &cat.Images[i]
		original := img.OriginalName(mbid)

		c.Check("Files::original image exists", files.HasOriginal(original),
			fmt.Sprintf("%s is not in IA file list, possibly disastrous", original), nil)

		for _, size := range thumbSizes {
			thumb := img.ThumbnailName(mbid, size)
			c.Check(fmt.Sprintf("Files::%dpx thumbnail exists", size), files.HasDerivative(thumb),
				fmt.Sprintf("%s is not in IA file list, should be re-derived", thumb), nil)
		}

		pattern := regexp.MustCompile(fmt.Sprintf(`^mbid-%s-%d\.[A-Za-z0-9]+$`, regexp.QuoteMeta(mbid), img.ID))
		matches := files.FindOriginals(func(fe remote.FileEntry) bool { return pattern.MatchString(fe.Name) })
		c.Check("Files::image id is unique", len(matches) == 1,
			fmt.Sprintf("multiple source files for image %d exist, this may lead to issues with derivation", img.ID), matches)
	}
}
