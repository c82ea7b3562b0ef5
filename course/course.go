// Package course validates a card's punch list against one or more
// orienteering course definitions: ordered (inline) edit-distance alignment,
// unordered (score) set matching, and an auto-detect routine that picks the
// best-fitting course out of a set.
package course

import (
	"errors"
	"fmt"

	"github.com/sireader/core/card"
)

// ErrNoCourses is returned by AutoDetect when given an empty course list.
var ErrNoCourses = errors.New("course: no courses to validate against")

// Course is an expected sequence (or set, for score courses) of controls.
type Course struct {
	Name         string
	Controls     []uint16
	Inline       bool
	UseBoxStart  bool
	FixedStartMs *int64
}

// ControlResult records whether one expected control was found among the
// card's punches, and when.
type ControlResult struct {
	ExpectedCode uint16
	Found        bool
	TimestampMs  int64
}

// Result is the outcome of validating a punch list against a Course.
type Result struct {
	Course         Course
	ControlResults []ControlResult
	MissingCount   int
	ExtraControls  []uint16
	AllCorrect     bool
}

func (r Result) String() string {
	return fmt.Sprintf("Result{course=%q missing=%d extras=%v correct=%v}", r.Course.Name, r.MissingCount, r.ExtraControls, r.AllCorrect)
}

// Validate dispatches to ValidateInline or ValidateScore based on the
// course's Inline flag.
func Validate(c Course, punches []card.Punch) Result {
	if c.Inline {
		return ValidateInline(c, punches)
	}
	return ValidateScore(c, punches)
}

func expectedCodeSet(c Course) map[uint16]bool {
	set := make(map[uint16]bool, len(c.Controls))
	for _, code := range c.Controls {
		set[code] = true
	}
	return set
}

// extraControls returns every punch code (in original order) that does not
// appear anywhere in the course's expected controls.
func extraControls(c Course, punches []card.Punch) []uint16 {
	expected := expectedCodeSet(c)
	var extras []uint16
	for _, p := range punches {
		if !expected[p.Code] {
			extras = append(extras, p.Code)
		}
	}
	return extras
}

func finalize(c Course, results []ControlResult) Result {
	missing := 0
	for _, r := range results {
		if !r.Found {
			missing++
		}
	}
	return Result{
		Course:         c,
		ControlResults: results,
		MissingCount:   missing,
		AllCorrect:     missing == 0,
	}
}

// ValidateScore matches each expected control, in order, against the first
// not-yet-used punch with the same code. Controls may be punched in any
// order; duplicated expected codes consume distinct punches in order.
func ValidateScore(c Course, punches []card.Punch) Result {
	used := make([]bool, len(punches))
	results := make([]ControlResult, len(c.Controls))

	for i, code := range c.Controls {
		results[i] = ControlResult{ExpectedCode: code, Found: false, TimestampMs: card.NoTime}
		for j, p := range punches {
			if used[j] || p.Code != code {
				continue
			}
			used[j] = true
			results[i] = ControlResult{ExpectedCode: code, Found: true, TimestampMs: p.TimestampMs}
			break
		}
	}

	res := finalize(c, results)
	res.ExtraControls = extraControls(c, punches)
	return res
}
