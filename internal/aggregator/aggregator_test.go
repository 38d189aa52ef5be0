package aggregator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ROpdebee/CAA-Auditor/internal/checks"
)

type fakeSignaler struct {
	success, failed, skipped int
}

func (f *fakeSignaler) TaskSuccess() { f.success++ }
func (f *fakeSignaler) TaskFailed()  { f.failed++ }
func (f *fakeSignaler) TaskSkipped() { f.skipped++ }

func TestPutIgnoresEmptyBatch(t *testing.T) {
	dir := t.TempDir()
	sig := &fakeSignaler{}
	a, err := New(dir, sig)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Put(nil); err != nil {
		t.Fatalf("Put(nil) = %v", err)
	}
	if sig.success+sig.failed+sig.skipped != 0 {
		t.Fatalf("empty batch should not signal progress")
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPutSignalsByPrecedence(t *testing.T) {
	dir := t.TempDir()
	sig := &fakeSignaler{}
	a, err := New(dir, sig)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Put([]checks.Result{checks.Passed("mbid-1", "Item::foo", nil)}); err != nil {
		t.Fatal(err)
	}
	if err := a.Put([]checks.Result{
		checks.Passed("mbid-2", "Item::foo", nil),
		checks.Failed("mbid-2", "Item::bar", nil),
	}); err != nil {
		t.Fatal(err)
	}
	if err := a.Put([]checks.Result{
		checks.Failed("mbid-3", "Item::bar", nil),
		checks.Skipped("mbid-3", "Item::baz", nil),
	}); err != nil {
		t.Fatal(err)
	}

	if sig.success != 1 || sig.failed != 1 || sig.skipped != 1 {
		t.Fatalf("signals = %+v, want 1/1/1", sig)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	stats, err := BuildStats(filepath.Join(dir, JournalName), dir, true)
	if err != nil {
		t.Fatal(err)
	}
	foo := stats.Reasons["Item::foo"]
	if foo == nil || foo.Passed != 2 {
		t.Fatalf("Item::foo passed = %+v, want 2", foo)
	}
	bar := stats.Reasons["Item::bar"]
	if bar == nil || bar.Failed != 2 || len(bar.FailedMBIDs) != 2 {
		t.Fatalf("Item::bar = %+v, want failed=2 across 2 mbids", bar)
	}
}

func TestPutAbortsOnRunawayInternalErrors(t *testing.T) {
	dir := t.TempDir()
	sig := &fakeSignaler{}
	a, err := New(dir, sig)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	var lastErr error
	for i := 0; i < MaxInternalErrors+1; i++ {
		lastErr = a.Put([]checks.Result{checks.InternalError("mbid", "Timeout")})
	}
	if lastErr != ErrRunaway {
		t.Fatalf("Put after %d internal errors = %v, want ErrRunaway", MaxInternalErrors+1, lastErr)
	}
}

func TestBuildStatsWritesLogsAndCSV(t *testing.T) {
	dir := t.TempDir()
	sig := &fakeSignaler{}
	a, err := New(dir, sig)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Put([]checks.Result{
		checks.Passed("mbid-1", "Item::meta", nil),
		checks.Failed("mbid-1", "Item::files", nil),
	}); err != nil {
		t.Fatal(err)
	}
	if err := a.Put([]checks.Result{checks.Skipped("mbid-2", "InternalError::Timeout", nil)}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	stats, err := BuildStats(filepath.Join(dir, JournalName), dir, true)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "skipped_items.log")); err != nil {
		t.Fatalf("skipped_items.log missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "failed_checks.log")); err != nil {
		t.Fatalf("failed_checks.log missing: %v", err)
	}

	csvPath := filepath.Join(dir, "bad_items.csv")
	if err := WriteBadItemsCSV(stats, csvPath); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got == "" {
		t.Fatal("bad_items.csv is empty")
	}
}

func TestBuildStatsSkipsLogsWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	sig := &fakeSignaler{}
	a, _ := New(dir, sig)
	_ = a.Put([]checks.Result{checks.Skipped("mbid-1", "InternalError::Timeout", nil)})
	_ = a.Close()

	if _, err := BuildStats(filepath.Join(dir, JournalName), dir, false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "skipped_items.log")); !os.IsNotExist(err) {
		t.Fatalf("skipped_items.log should not exist when logs=false, stat err = %v", err)
	}
}
