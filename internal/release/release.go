// Package release resolves OpenStack release codenames and orders them by release date.
package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

// Release is an OpenStack release codename. The zero value is not a valid release.
type Release string

// Known releases, oldest first.
const (
	Diablo   Release = "diablo"
	Essex    Release = "essex"
	Folsom   Release = "folsom"
	Grizzly  Release = "grizzly"
	Havana   Release = "havana"
	Icehouse Release = "icehouse"
	Juno     Release = "juno"
	Kilo     Release = "kilo"
	Liberty  Release = "liberty"
	Mitaka   Release = "mitaka"
	Newton   Release = "newton"
	Ocata    Release = "ocata"
	Pike     Release = "pike"
	Queens   Release = "queens"
	Rocky    Release = "rocky"
	Stein    Release = "stein"
	Train    Release = "train"
	Ussuri   Release = "ussuri"
	Victoria Release = "victoria"
	Wallaby  Release = "wallaby"
	Xena     Release = "xena"
	Yoga     Release = "yoga"
	Zed      Release = "zed"
	Antelope Release = "antelope"
	Bobcat   Release = "bobcat"
	Caracal  Release = "caracal"
)

// order is the canonical release order. Comparisons go through this table, never through
// string comparison of codenames.
var order = []Release{
	Diablo, Essex, Folsom, Grizzly, Havana, Icehouse, Juno, Kilo, Liberty, Mitaka,
	Newton, Ocata, Pike, Queens, Rocky, Stein, Train, Ussuri, Victoria, Wallaby,
	Xena, Yoga, Zed, Antelope, Bobcat, Caracal,
}

var index = func() map[Release]int {
	m := make(map[Release]int, len(order))
	for i, r := range order {
		m[r] = i
	}
	return m
}()

// distroReleases maps an Ubuntu series to the release it ships in its main archive.
var distroReleases = map[string]Release{
	"oneiric": Diablo,
	"precise": Essex,
	"quantal": Folsom,
	"raring":  Grizzly,
	"saucy":   Havana,
	"trusty":  Icehouse,
	"utopic":  Juno,
	"vivid":   Kilo,
	"wily":    Liberty,
	"xenial":  Mitaka,
	"yakkety": Newton,
	"zesty":   Ocata,
	"artful":  Pike,
	"bionic":  Queens,
	"cosmic":  Rocky,
	"disco":   Stein,
	"eoan":    Train,
	"focal":   Ussuri,
	"groovy":  Victoria,
	"hirsute": Wallaby,
	"impish":  Xena,
	"jammy":   Yoga,
	"kinetic": Zed,
	"lunar":   Antelope,
	"mantic":  Bobcat,
	"noble":   Caracal,
}

// UnknownReleaseError reports an identifier that does not name a known release.
type UnknownReleaseError struct {
	Input string
}

// NewUnknownReleaseError returns an UnknownReleaseError for input.
func NewUnknownReleaseError(input string) *UnknownReleaseError {
	return &UnknownReleaseError{Input: input}
}

func (e *UnknownReleaseError) Error() string {
	return fmt.Sprintf(messages.ReleaseUnknownFmt, e.Input)
}

// IsUnknownReleaseError reports whether err wraps an UnknownReleaseError.
func IsUnknownReleaseError(err error) bool {
	var e *UnknownReleaseError
	return errors.As(err, &e)
}

// All returns the known releases, oldest first.
func All() []Release {
	out := make([]Release, len(order))
	copy(out, order)
	return out
}

// Parse returns the Release named by codename.
func Parse(codename string) (Release, error) {
	r := Release(strings.ToLower(strings.TrimSpace(codename)))
	if _, ok := index[r]; !ok {
		return "", NewUnknownReleaseError(codename)
	}
	return r, nil
}

// Valid reports whether r is a known release.
func (r Release) Valid() bool {
	_, ok := index[r]
	return ok
}

func (r Release) String() string {
	return string(r)
}

// Compare returns -1, 0 or 1 depending on whether a is older than, the same as, or newer
// than b. Unknown releases sort before every known release.
func Compare(a, b Release) int {
	ia, oka := index[a]
	ib, okb := index[b]
	if !oka {
		ia = -1
	}
	if !okb {
		ib = -1
	}
	switch {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r is the same as or newer than other.
func (r Release) AtLeast(other Release) bool {
	return Compare(r, other) >= 0
}

// Before reports whether r is older than other.
func (r Release) Before(other Release) bool {
	return Compare(r, other) < 0
}

// Previous returns the releases strictly older than r, newest first.
func (r Release) Previous() []Release {
	i, ok := index[r]
	if !ok {
		return nil
	}
	out := make([]Release, 0, i)
	for j := i - 1; j >= 0; j-- {
		out = append(out, order[j])
	}
	return out
}

// ForSeries returns the release shipped in the main archive of an Ubuntu series.
func ForSeries(series string) (Release, error) {
	r, ok := distroReleases[strings.ToLower(strings.TrimSpace(series))]
	if !ok {
		return "", NewUnknownReleaseError(series)
	}
	return r, nil
}
