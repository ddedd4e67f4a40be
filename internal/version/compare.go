package version

import "strings"

// Ordering is the position of a current version relative to a latest one.
type Ordering int

const (
	Older Ordering = -1
	Same  Ordering = 0
	Newer Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Older:
		return "older"
	case Newer:
		return "newer"
	default:
		return "same"
	}
}

// Compare orders current relative to latest. It never fails: inputs that
// cannot be ordered compare as Same.
//
// Main segments are compared as integer sequences, so 1.10.0 is newer than
// 1.9.0. When one sequence is a prefix of the other the longer one is newer
// (1.2 < 1.2.0.1). With equal main segments a final release is newer than
// any of its pre-releases; two pre-release labels are ordered by their first
// character and then by the longest run of digits they contain.
func Compare(current, latest string) Ordering {
	if current == latest {
		return Same
	}

	curMain, curLabel, curHasLabel := strings.Cut(current, "-")
	latMain, latLabel, latHasLabel := strings.Cut(latest, "-")
	curMain = StripBuild(curMain)
	latMain = StripBuild(latMain)

	if curMain != latMain {
		return compareSegments(looseSegments(curMain), looseSegments(latMain))
	}

	switch {
	case !curHasLabel && !latHasLabel:
		return Same
	case curHasLabel && !latHasLabel:
		return Older
	case !curHasLabel && latHasLabel:
		return Newer
	}

	return compareLabels(curLabel, latLabel)
}

// OutOfDate reports whether current is older than latest.
func OutOfDate(current, latest string) bool {
	return Compare(current, latest) == Older
}

func compareSegments(cur, lat []string) Ordering {
	for i := 0; i < min(len(cur), len(lat)); i++ {
		if c := compareDigits(cur[i], lat[i]); c != 0 {
			return Ordering(c)
		}
	}

	switch {
	case len(cur) < len(lat):
		return Older
	case len(cur) > len(lat):
		return Newer
	}
	return Same
}

func compareLabels(cur, lat string) Ordering {
	if cur != "" && lat != "" && cur[0] != lat[0] {
		if cur[0] > lat[0] {
			return Newer
		}
		return Older
	}

	return Ordering(compareDigits(labelNumber(StripBuild(cur)), labelNumber(StripBuild(lat))))
}

// looseSegments extracts numbers from a main version text after dropping
// every character that is neither a digit nor a dot. Empty components count
// as zero.
func looseSegments(s string) []string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '.' || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}

	parts := strings.Split(b.String(), ".")
	for i, p := range parts {
		parts[i] = trimZeros(p)
	}
	return parts
}

// labelNumber returns the longest digit run in label without leading
// zeros, or "0".
func labelNumber(label string) string {
	best := ""
	start := -1
	for i := 0; i <= len(label); i++ {
		if i < len(label) && label[i] >= '0' && label[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if run := label[start:i]; len(run) > len(best) {
				best = run
			}
			start = -1
		}
	}

	return trimZeros(best)
}
