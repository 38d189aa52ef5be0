package aggregator

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/olekukonko/tablewriter"

	"github.com/ROpdebee/CAA-Auditor/internal/checks"
	"github.com/ROpdebee/CAA-Auditor/internal/formatter"
)

// ReasonCounter tallies one check description's outcomes across the whole
// run: how many times it passed, failed, or was skipped, and which releases
// it touched (spec §4.6 "Report Writers").
type ReasonCounter struct {
	Passed      int
	Failed      int
	Skipped     int
	AllMBIDs    map[string]struct{}
	FailedMBIDs map[string]int
}

func newReasonCounter() *ReasonCounter {
	return &ReasonCounter{AllMBIDs: map[string]struct{}{}, FailedMBIDs: map[string]int{}}
}

// Stats is the aggregate built from one pass over the journal.
type Stats struct {
	Reasons     map[string]*ReasonCounter
	SkipReasons map[string]int
}

// Row is one rendered table line: a description plus its derived totals.
type Row struct {
	Name        string
	Checks      int
	CheckedRels int
	Failed      int
	FailedRels  int
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

// Rows returns one Row per description, sorted by name.
func (s *Stats) Rows() []Row {
	names := make([]string, 0, len(s.Reasons))
	for name := range s.Reasons {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]Row, 0, len(names))
	for _, name := range names {
		rc := s.Reasons[name]
		rows = append(rows, Row{
			Name:        name,
			Checks:      rc.Passed + rc.Failed + rc.Skipped,
			CheckedRels: len(rc.AllMBIDs),
			Failed:      rc.Failed,
			FailedRels:  len(rc.FailedMBIDs),
		})
	}
	return rows
}

// AllMBIDs returns the union of every MBID any check touched, across all
// descriptions. Used by generate-output's on-disk integrity scan.
func (s *Stats) AllMBIDs() []string {
	seen := make(map[string]struct{})
	for _, rc := range s.Reasons {
		for mbid := range rc.AllMBIDs {
			seen[mbid] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for mbid := range seen {
		out = append(out, mbid)
	}
	sort.Strings(out)
	return out
}

// BuildStats streams the journal once, accumulating per-description
// ReasonCounters and, when logs is true, writing skipped_items.log and
// failed_checks.log as a side effect (spec §4.6, "generate-output --logs").
// It never materializes the raw result stream in memory; only the
// per-description aggregate (counters plus the set of MBIDs each description
// touched) survives the pass (spec §7 "results exceed memory").
func BuildStats(journalPath, outputDir string, logs bool) (*Stats, error) {
	f, err := os.Open(journalPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening journal gzip stream: %w", err)
	}
	defer gz.Close()

	var skippedW, failedW *bufio.Writer
	if logs {
		skippedLog, err := os.Create(filepath.Join(outputDir, "skipped_items.log"))
		if err != nil {
			return nil, fmt.Errorf("creating skipped_items.log: %w", err)
		}
		defer skippedLog.Close()
		skippedW = bufio.NewWriter(skippedLog)
		defer skippedW.Flush()

		failedLog, err := os.Create(filepath.Join(outputDir, "failed_checks.log"))
		if err != nil {
			return nil, fmt.Errorf("creating failed_checks.log: %w", err)
		}
		defer failedLog.Close()
		failedW = bufio.NewWriter(failedLog)
		defer failedW.Flush()
	}

	stats := &Stats{Reasons: map[string]*ReasonCounter{}, SkipReasons: map[string]int{}}

	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		mbid, desc, state := parts[0], parts[1], checks.State(parts[2])

		rc := stats.Reasons[desc]
		if rc == nil {
			rc = newReasonCounter()
			stats.Reasons[desc] = rc
		}
		rc.AllMBIDs[mbid] = struct{}{}

		switch state {
		case checks.StatePassed:
			rc.Passed++
		case checks.StateFailed:
			rc.Failed++
			rc.FailedMBIDs[mbid]++
			if failedW != nil {
				if _, err := fmt.Fprintf(failedW, "%s\t%s\n", mbid, desc); err != nil {
					return nil, err
				}
			}
		case checks.StateSkipped:
			rc.Skipped++
			stats.SkipReasons[desc]++
			if skippedW != nil {
				if _, err := fmt.Fprintf(skippedW, "%s\t%s\n", mbid, desc); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	return stats, nil
}

// WriteBadItemsCSV emits one row per MBID that failed at least one check,
// columns sorted by description, cells holding per-description failure
// counts (spec §4.6 "bad_items.csv").
func WriteBadItemsCSV(stats *Stats, path string) error {
	var failedDescs []string
	for desc, rc := range stats.Reasons {
		if len(rc.FailedMBIDs) > 0 {
			failedDescs = append(failedDescs, desc)
		}
	}
	sort.Strings(failedDescs)

	rowsByMBID := map[string]map[string]int{}
	for _, desc := range failedDescs {
		for mbid, count := range stats.Reasons[desc].FailedMBIDs {
			row := rowsByMBID[mbid]
			if row == nil {
				row = map[string]int{}
				rowsByMBID[mbid] = row
			}
			row[desc] = count
		}
	}
	mbids := make([]string, 0, len(rowsByMBID))
	for mbid := range rowsByMBID {
		mbids = append(mbids, mbid)
	}
	sort.Strings(mbids)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"mbid"}, failedDescs...)); err != nil {
		return err
	}
	for _, mbid := range mbids {
		row := make([]string, 0, len(failedDescs)+1)
		row = append(row, mbid)
		for _, desc := range failedDescs {
			row = append(row, fmt.Sprintf("%d", rowsByMBID[mbid][desc]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

var tableHeaders = []string{"name", "#checks", "#checked rels", "#failed (%)", "#failed rels (%)"}

func rowCells(r Row) []string {
	return []string{
		r.Name,
		fmt.Sprintf("%d", r.Checks),
		fmt.Sprintf("%d", r.CheckedRels),
		fmt.Sprintf("%d (%.1f%%)", r.Failed, pct(r.Failed, r.Checks)),
		fmt.Sprintf("%d (%.1f%%)", r.FailedRels, pct(r.FailedRels, r.CheckedRels)),
	}
}

func writeSkipFooter(w *bufio.Writer, stats *Stats) {
	if len(stats.SkipReasons) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSKIPPED ITEMS")
	names := make([]string, 0, len(stats.SkipReasons))
	for name := range stats.SkipReasons {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%d\t%s\n", stats.SkipReasons[name], name)
	}
}

// WriteAllTable writes results_all.txt: every description, passed or not.
func WriteAllTable(stats *Stats, path string) error {
	return writePlainTable(stats, path, false)
}

// WriteCondensedTable writes results_condensed.txt: only descriptions with
// at least one failure.
func WriteCondensedTable(stats *Stats, path string) error {
	return writePlainTable(stats, path, true)
}

func writePlainTable(stats *Stats, path string, onlyFailures bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	t := formatter.NewTable(f, tableHeaders...)
	for _, row := range stats.Rows() {
		if onlyFailures && row.Failed == 0 {
			continue
		}
		t.AddRow(rowCells(row)...)
	}
	if err := t.Render(); err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	writeSkipFooter(bw, stats)
	return bw.Flush()
}

// WriteJiraTable writes results_jira.txt in Jira wiki-markup table syntax,
// restricted to descriptions with at least one failure (spec §4.6).
func WriteJiraTable(stats *Stats, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "||%s||\n", strings.Join(tableHeaders, "||"))
	for _, row := range stats.Rows() {
		if row.Failed == 0 {
			continue
		}
		fmt.Fprintf(bw, "|%s|\n", strings.Join(rowCells(row), "|"))
	}
	writeSkipFooter(bw, stats)
	return bw.Flush()
}

// RenderTerminalTable renders the full table with a fancy grid style for
// direct terminal output (spec §4.6 "terminal output").
func RenderTerminalTable(stats *Stats) string {
	var buf strings.Builder
	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader(tableHeaders)
	tw.SetAutoWrapText(false)
	for _, row := range stats.Rows() {
		tw.Append(rowCells(row))
	}
	tw.Render()
	return buf.String()
}

// WriteReports produces the report files gated by --bad-items and --tables;
// the --logs gate is applied earlier, in BuildStats, since skipped_items.log
// and failed_checks.log are written during the journal scan itself.
func WriteReports(stats *Stats, outputDir string, badItems, tables bool) error {
	if tables {
		if err := WriteAllTable(stats, filepath.Join(outputDir, "results_all.txt")); err != nil {
			return err
		}
		if err := WriteCondensedTable(stats, filepath.Join(outputDir, "results_condensed.txt")); err != nil {
			return err
		}
		if err := WriteJiraTable(stats, filepath.Join(outputDir, "results_jira.txt")); err != nil {
			return err
		}
	}
	if badItems {
		if err := WriteBadItemsCSV(stats, filepath.Join(outputDir, "bad_items.csv")); err != nil {
			return err
		}
	}
	return nil
}
