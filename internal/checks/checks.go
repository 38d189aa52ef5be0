// Package checks defines the canonical check vocabulary and result record
// shared by every stage of the audit engine.
package checks

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// State is the fixed verdict a check result carries.
type State string

const (
	StatePassed  State = "PASSED"
	StateFailed  State = "FAILED"
	StateSkipped State = "ITEM SKIPPED"
)

// Base categories, selected from the input record's state (spec §3, §4.4).
const (
	BaseItem        = "Item"
	BaseEmptyItem   = "EmptyItem"
	BaseDeletedItem = "DeletedItem"
	BaseMergedItem  = "MergedItem"
)

// BaseCategory maps an input task state to its check-description prefix.
// Deliberately a lookup table, not a string transform: active -> Item, not
// ActiveItem.
func BaseCategory(state string) string {
	switch state {
	case "active":
		return BaseItem
	case "empty":
		return BaseEmptyItem
	case "possibly_deleted":
		return BaseDeletedItem
	case "merged":
		return BaseMergedItem
	default:
		return BaseItem
	}
}

// Result is the tagged-union check record: CheckPassed, CheckFailed, and
// ItemSkipped all share this shape, distinguished by State.
type Result struct {
	MBID           string
	Description    string
	State          State
	AdditionalData any
}

// Category splits the description on "::".
func (r Result) Category() []string {
	return strings.Split(r.Description, "::")
}

// BaseCategoryOf returns the first dotted segment of the description.
func (r Result) BaseCategoryOf() string {
	parts := r.Category()
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func (r Result) String() string {
	return r.MBID + "\t" + r.Description + "\t" + string(r.State)
}

// Passed builds a CheckPassed result.
func Passed(mbid, description string, data any) Result {
	return Result{MBID: mbid, Description: description, State: StatePassed, AdditionalData: data}
}

// Failed builds a CheckFailed result.
func Failed(mbid, description string, data any) Result {
	return Result{MBID: mbid, Description: description, State: StateFailed, AdditionalData: data}
}

// Skipped builds an ItemSkipped result.
func Skipped(mbid, description string, data any) Result {
	return Result{MBID: mbid, Description: description, State: StateSkipped, AdditionalData: data}
}

// InternalError builds the single ItemSkipped result emitted when a task
// dies to an unhandled infrastructure error (spec §3 invariants, §4.4.3).
func InternalError(mbid, kind string) Result {
	return Skipped(mbid, "InternalError::"+kind, nil)
}

// Checker accumulates results for one task under a fixed base category and
// mirrors the engine's `check(category, success, failure_msg, fail_variant)`
// helper contract (spec §4.2).
type Checker struct {
	MBID    string
	Base    string
	Logger  *logrus.Entry
	Results []Result
}

// NewChecker creates a Checker for one task.
func NewChecker(mbid, base string, logger *logrus.Entry) *Checker {
	return &Checker{MBID: mbid, Base: base, Logger: logger}
}

// Check records a CheckPassed/CheckFailed result under "<Base>::<category>".
// Returns success unchanged, so callers can gate subsequent stages on it.
func (c *Checker) Check(category string, success bool, failureMsg string, data any) bool {
	return c.record(category, success, failureMsg, StateFailed, data)
}

// CheckSkip behaves like Check but records ItemSkipped instead of
// CheckFailed on failure; a false result here means the engine aborts the
// remaining stages without counting it as a failure.
func (c *Checker) CheckSkip(category string, success bool, failureMsg string, data any) bool {
	return c.record(category, success, failureMsg, StateSkipped, data)
}

func (c *Checker) record(category string, success bool, failureMsg string, failState State, data any) bool {
	desc := c.Base + "::" + category
	if success {
		c.Results = append(c.Results, Passed(c.MBID, desc, data))
		return true
	}
	if c.Logger != nil {
		c.Logger.Error(failureMsg)
	}
	c.Results = append(c.Results, Result{MBID: c.MBID, Description: desc, State: failState, AdditionalData: data})
	return false
}

// Add appends an already-constructed result (used where the pass/fail
// decision needs variant-specific data, e.g. schema checks).
func (c *Checker) Add(r Result) {
	c.Results = append(c.Results, r)
}

// CountByState reports how many results in a batch fall in each state,
// used for the per-task summary log line and the precedence rule that
// drives progress reporting (skipped > failed > passed, spec §4.6).
func CountByState(results []Result) (passed, failed, skipped int) {
	for _, r := range results {
		switch r.State {
		case StatePassed:
			passed++
		case StateFailed:
			failed++
		case StateSkipped:
			skipped++
		}
	}
	return
}

// Precedence picks which single progress transition a batch of results
// should fire: skipped > failed > passed.
func Precedence(results []Result) State {
	_, failed, skipped := CountByState(results)
	switch {
	case skipped > 0:
		return StateSkipped
	case failed > 0:
		return StateFailed
	default:
		return StatePassed
	}
}
