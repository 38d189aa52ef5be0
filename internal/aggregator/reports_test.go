package aggregator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ROpdebee/CAA-Auditor/internal/checks"
)

func buildSampleStats(t *testing.T) (*Stats, string) {
	t.Helper()
	dir := t.TempDir()
	a, err := New(dir, &fakeSignaler{})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Put([]checks.Result{
		checks.Passed("mbid-1", "Item::meta", nil),
		checks.Passed("mbid-2", "Item::meta", nil),
		checks.Failed("mbid-2", "Item::files", nil),
	}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	stats, err := BuildStats(filepath.Join(dir, JournalName), dir, true)
	if err != nil {
		t.Fatal(err)
	}
	return stats, dir
}

func TestRowsSortedAndDerived(t *testing.T) {
	stats, _ := buildSampleStats(t)
	rows := stats.Rows()
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Name != "Item::files" || rows[1].Name != "Item::meta" {
		t.Fatalf("rows not sorted by name: %+v", rows)
	}
	meta := rows[1]
	if meta.Checks != 2 || meta.CheckedRels != 2 || meta.Failed != 0 {
		t.Fatalf("Item::meta row = %+v", meta)
	}
	files := rows[0]
	if files.Checks != 1 || files.Failed != 1 || files.FailedRels != 1 {
		t.Fatalf("Item::files row = %+v", files)
	}
}

func TestWriteCondensedTableOmitsPassingChecks(t *testing.T) {
	stats, dir := buildSampleStats(t)
	path := filepath.Join(dir, "results_condensed.txt")
	if err := WriteCondensedTable(stats, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Contains(content, "Item::meta") {
		t.Fatalf("condensed table should omit all-passing checks, got:\n%s", content)
	}
	if !strings.Contains(content, "Item::files") {
		t.Fatalf("condensed table missing failing check, got:\n%s", content)
	}
}

func TestWriteJiraTableUsesWikiMarkup(t *testing.T) {
	stats, dir := buildSampleStats(t)
	path := filepath.Join(dir, "results_jira.txt")
	if err := WriteJiraTable(stats, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "||name||") {
		t.Fatalf("jira table header malformed: %q", content)
	}
}

func TestRenderTerminalTableIncludesAllRows(t *testing.T) {
	stats, _ := buildSampleStats(t)
	out := RenderTerminalTable(stats)
	if !strings.Contains(out, "Item::meta") || !strings.Contains(out, "Item::files") {
		t.Fatalf("terminal table missing rows:\n%s", out)
	}
}
