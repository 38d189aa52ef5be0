package engine

import (
	"context"

	"github.com/ROpdebee/CAA-Auditor/internal/checks"
	"github.com/ROpdebee/CAA-Auditor/internal/progress"
	"github.com/ROpdebee/CAA-Auditor/internal/remote"
)

// runActiveChecks runs the three Active-Checks sub-stages for an
// active/empty item (spec §4.4.1). The index document fetch happens at the
// start of the files/index section, as specified.
func (t *Task) runActiveChecks(ctx context.Context, c *checks.Checker, meta *remote.Metadata) error {
	if !meta.HasMeta {
		c.Check("Metadata::missing metadata key", false, "item missing IA metadata key", nil)
		return nil
	}

	cat := t.Record.Data

	if err := t.Progress.RunStage(progress.StageMeta, func() error {
		runMetadataChecks(c, meta.Meta, cat)
		return nil
	}); err != nil {
		return err
	}

	var indexRaw []byte
	if err := t.Progress.RunStage(progress.StageFiles, func() error {
		var ferr error
		indexRaw, ferr = t.Client.CAAIndex(ctx, t.Logger, t.Dir, t.Identifier)
		if ferr != nil {
			return ferr
		}
		runFilesChecks(c, meta.Files, cat, t.Record.ID)
		return nil
	}); err != nil {
		return err
	}

	return t.Progress.RunStage(progress.StageIndex, func() error {
		runIndexChecks(c, indexRaw, cat, t.Record.ID)
		return nil
	})
}
