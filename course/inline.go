package course

import "github.com/sireader/core/card"

// ValidateInline aligns an ordered course's expected controls against the
// card's punches using a Levenshtein edit-distance trace, reproducing the
// reference implementation's trace rules verbatim (§4.5) rather than a
// textbook alignment — fixture behaviour depends on the exact branch order
// below, including the "skip-is-worse" heuristic that is not provably
// optimal but must not be re-derived.
func ValidateInline(c Course, punches []card.Punch) Result {
	filtered := filterToExpected(c, punches)

	m := len(c.Controls)
	n := len(filtered)

	d := levenshteinMatrix(c.Controls, filtered)
	totalCost := d[m][n]

	results := make([]ControlResult, m)
	for i := range results {
		results[i] = ControlResult{ExpectedCode: c.Controls[i], Found: false, TimestampMs: card.NoTime}
	}

	i, j := 0, 0
	for i < m {
		switch {
		case j < n && d[i+1][j+1] == d[i][j]:
			results[i] = ControlResult{ExpectedCode: c.Controls[i], Found: true, TimestampMs: filtered[j].TimestampMs}
			i++
		case !codeFoundAfter(c.Controls[i], filtered, j):
			i++
			j--
		case d[i][j+1] > totalCost:
			i++
			j--
		default:
			// Skip this punch as extra/substitution noise; only the
			// shared j++ below applies.
		}
		j++
	}

	res := finalize(c, results)
	res.ExtraControls = extraControls(c, punches)
	return res
}

// filterToExpected keeps only the punches whose code appears somewhere in
// the course, preserving order.
func filterToExpected(c Course, punches []card.Punch) []card.Punch {
	expected := expectedCodeSet(c)
	out := make([]card.Punch, 0, len(punches))
	for _, p := range punches {
		if expected[p.Code] {
			out = append(out, p)
		}
	}
	return out
}

// codeFoundAfter reports whether code appears in filtered at any index > j.
func codeFoundAfter(code uint16, filtered []card.Punch, j int) bool {
	for k := j + 1; k < len(filtered); k++ {
		if filtered[k].Code == code {
			return true
		}
	}
	return false
}

// levenshteinMatrix builds the full (m+1)x(n+1) edit-distance matrix between
// the expected control sequence and the filtered punch sequence, with
// substitution cost 0 when codes match and 1 otherwise.
func levenshteinMatrix(expected []uint16, filtered []card.Punch) [][]int {
	m, n := len(expected), len(filtered)
	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}
	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 1
			if expected[i-1] == filtered[j-1].Code {
				cost = 0
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			d[i][j] = best
		}
	}

	return d
}
