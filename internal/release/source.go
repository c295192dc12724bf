package release

import (
	"strings"
)

// packageCodenames maps the upstream major version of the openstack-dashboard package to
// the release it belongs to. Releases before liberty used year.N versions.
var packageCodenames = map[string]Release{
	"2011.3": Diablo,
	"2012.1": Essex,
	"2012.2": Folsom,
	"2013.1": Grizzly,
	"2013.2": Havana,
	"2014.1": Icehouse,
	"2014.2": Juno,
	"2015.1": Kilo,
	"8":      Liberty,
	"9":      Mitaka,
	"10":     Newton,
	"11":     Ocata,
	"12":     Pike,
	"13":     Queens,
	"14":     Rocky,
	"15":     Stein,
	"16":     Train,
	"17":     Ussuri,
	"18":     Ussuri,
	"19":     Victoria,
	"20":     Wallaby,
	"21":     Xena,
	"22":     Yoga,
	"23":     Zed,
	"23.1":   Antelope,
	"23.3":   Bobcat,
	"24":     Caracal,
}

// FromInstallSource resolves the release an install source will deliver.
//
// Accepted forms:
//   - "", "distro", "distro-proposed": the release shipped with series
//   - "cloud:<series>-<codename>[/<pocket>]": the cloud archive codename
//   - "<codename>": an explicit release
//   - anything else (ppa:, deb http://...): the first known codename found in the string
func FromInstallSource(source string, series string) (Release, error) {
	src := strings.ToLower(strings.TrimSpace(source))
	switch src {
	case "", "distro", "distro-proposed":
		return ForSeries(series)
	}
	if strings.HasPrefix(src, "cloud:") {
		return fromCloudArchive(source, strings.TrimPrefix(src, "cloud:"))
	}
	if r, err := Parse(src); err == nil {
		return r, nil
	}
	for _, r := range order {
		if strings.Contains(src, string(r)) {
			return r, nil
		}
	}
	return "", NewUnknownReleaseError(source)
}

func fromCloudArchive(source string, pocket string) (Release, error) {
	if slash := strings.Index(pocket, "/"); slash >= 0 {
		pocket = pocket[:slash]
	}
	codename := pocket
	if dash := strings.LastIndex(pocket, "-"); dash >= 0 {
		codename = pocket[dash+1:]
	}
	r, err := Parse(codename)
	if err != nil {
		return "", NewUnknownReleaseError(source)
	}
	return r, nil
}

// FromPackageVersion resolves the release from an installed openstack-dashboard package
// version such as "2:9.0.1-0ubuntu2" or "1:2014.1-0ubuntu1". The epoch, Debian revision
// and any "~" or "+" suffix are ignored.
func FromPackageVersion(version string) (Release, error) {
	v := upstreamVersion(version)
	parts := strings.SplitN(v, ".", 3)
	if parts[0] == "" {
		return "", NewUnknownReleaseError(version)
	}
	if len(parts) >= 2 {
		if r, ok := packageCodenames[parts[0]+"."+parts[1]]; ok {
			return r, nil
		}
	}
	if r, ok := packageCodenames[parts[0]]; ok {
		return r, nil
	}
	return "", NewUnknownReleaseError(version)
}

func upstreamVersion(version string) string {
	v := strings.TrimSpace(version)
	if colon := strings.Index(v, ":"); colon >= 0 {
		v = v[colon+1:]
	}
	if dash := strings.LastIndex(v, "-"); dash >= 0 {
		v = v[:dash]
	}
	if cut := strings.IndexAny(v, "~+"); cut >= 0 {
		v = v[:cut]
	}
	return v
}
