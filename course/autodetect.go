package course

import "github.com/sireader/core/card"

// AutoDetect validates punches against every course in turn and returns the
// result for whichever course fits best: smallest MissingCount, ties broken
// in favor of the course with more controls (a shorter course is more
// likely to be a prefix/subset match of a longer one actually run).
func AutoDetect(courses []Course, punches []card.Punch) (Result, error) {
	if len(courses) == 0 {
		return Result{}, ErrNoCourses
	}

	best := Validate(courses[0], punches)

	for _, c := range courses[1:] {
		res := Validate(c, punches)
		if res.MissingCount < best.MissingCount {
			best = res
			continue
		}
		if res.MissingCount == best.MissingCount && len(res.Course.Controls) > len(best.Course.Controls) {
			best = res
		}
	}

	return best, nil
}
