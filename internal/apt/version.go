package apt

import (
	"strings"
)

// debVersion is a parsed Debian package version: [epoch:]upstream[-revision].
type debVersion struct {
	epoch    int
	upstream string
	revision string
}

func parseDebVersion(v string) debVersion {
	v = strings.TrimSpace(v)
	out := debVersion{}
	if colon := strings.Index(v, ":"); colon >= 0 {
		epoch := 0
		for _, c := range v[:colon] {
			if c < '0' || c > '9' {
				epoch = 0
				break
			}
			epoch = epoch*10 + int(c-'0')
		}
		out.epoch = epoch
		v = v[colon+1:]
	}
	if dash := strings.LastIndex(v, "-"); dash >= 0 {
		out.upstream = v[:dash]
		out.revision = v[dash+1:]
	} else {
		out.upstream = v
	}
	return out
}

// CompareVersions orders two Debian version strings the way dpkg does, returning -1, 0
// or 1.
func CompareVersions(a string, b string) int {
	va := parseDebVersion(a)
	vb := parseDebVersion(b)
	if va.epoch != vb.epoch {
		if va.epoch < vb.epoch {
			return -1
		}
		return 1
	}
	if c := verrevcmp(va.upstream, vb.upstream); c != 0 {
		return c
	}
	return verrevcmp(va.revision, vb.revision)
}

// order weights a non-digit character: '~' sorts before everything including the end of
// the string, letters sort before non-letters.
func order(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return 0
	case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		return int(c)
	case c == '~':
		return -1
	default:
		return int(c) + 256
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func verrevcmp(a string, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		firstDiff := 0
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ac, bc := 0, 0
			if i < len(a) {
				ac = order(a[i])
			}
			if j < len(b) {
				bc = order(b[j])
			}
			if ac != bc {
				return sign(ac - bc)
			}
			i++
			j++
		}
		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}
		for i < len(a) && isDigit(a[i]) && j < len(b) && isDigit(b[j]) {
			if firstDiff == 0 {
				firstDiff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		if i < len(a) && isDigit(a[i]) {
			return 1
		}
		if j < len(b) && isDigit(b[j]) {
			return -1
		}
		if firstDiff != 0 {
			return sign(firstDiff)
		}
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
