package progress

import "testing"

func TestStageString(t *testing.T) {
	cases := map[Stage]string{
		StagePreprocess:  "preprocess",
		StageFetch:       "fetch",
		StageMeta:        "meta",
		StageFiles:       "files",
		StageIndex:       "index",
		StageReport:      "report",
		StagePostprocess: "postprocess",
		Stage(99):        "unknown",
	}
	for stage, want := range cases {
		if got := stage.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", stage, got, want)
		}
	}
}

func TestReporterCounters(t *testing.T) {
	r := New(3)
	defer r.Close()

	r.TaskEnqueued()
	r.TaskEnqueued()
	r.TaskRunning()

	if r.todo != 1 || r.queued != 1 || r.pending != 1 {
		t.Fatalf("after enqueue/run: todo=%d queued=%d pending=%d", r.todo, r.queued, r.pending)
	}

	r.TaskSuccess()
	if r.pending != 0 || r.success != 1 {
		t.Fatalf("after success: pending=%d success=%d", r.pending, r.success)
	}

	r.TaskRunning()
	r.TaskFailed()
	if r.failed != 1 {
		t.Fatalf("failed = %d, want 1", r.failed)
	}

	r.TaskRunning()
	r.TaskSkipped()
	if r.skipped != 1 {
		t.Fatalf("skipped = %d, want 1", r.skipped)
	}
}

func TestReporterStageOccupancy(t *testing.T) {
	r := New(1)
	defer r.Close()

	r.EnterStage(StageFetch)
	r.EnterStage(StageFetch)
	if r.stageCount[StageFetch] != 2 {
		t.Fatalf("stageCount[fetch] = %d, want 2", r.stageCount[StageFetch])
	}
	r.ExitStage(StageFetch)
	if r.stageCount[StageFetch] != 1 {
		t.Fatalf("stageCount[fetch] = %d, want 1", r.stageCount[StageFetch])
	}
}

func TestRunStageEntersAndExitsOnError(t *testing.T) {
	r := New(1)
	defer r.Close()

	err := r.RunStage(StageMeta, func() error {
		if r.stageCount[StageMeta] != 1 {
			t.Fatalf("stageCount[meta] during RunStage = %d, want 1", r.stageCount[StageMeta])
		}
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("RunStage error = %v, want errBoom", err)
	}
	if r.stageCount[StageMeta] != 0 {
		t.Fatalf("stageCount[meta] after RunStage error = %d, want 0", r.stageCount[StageMeta])
	}
}

var errBoom = errBoomT{}

type errBoomT struct{}

func (errBoomT) Error() string { return "boom" }
