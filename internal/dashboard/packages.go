package dashboard

import (
	"slices"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/release"
)

var basePackages = []string{
	"haproxy",
	"python-novaclient",
	"python-keystoneclient",
	"openstack-dashboard-ubuntu-theme",
	"python-memcache",
	"openstack-dashboard",
	"memcached",
}

// databaseDriverPackage is required from mitaka, when sessions moved into the database.
const databaseDriverPackage = "python-pymysql"

var sourceBuildPackages = []string{
	"apache2",
	"libapache2-mod-wsgi",
	"libffi-dev",
	"libpcre3-dev",
	"libssl-dev",
	"libxml2-dev",
	"libxslt1-dev",
	"libyaml-dev",
	"python-dev",
	"python-lesscpy",
	"python-pip",
	"python-setuptools",
	"zlib1g-dev",
}

// sourceBlacklist holds distro packages replaced by a source install.
var sourceBlacklist = []string{
	"openstack-dashboard",
	"openstack-dashboard-ubuntu-theme",
	"python-keystoneclient",
	"python-novaclient",
}

// PackagesFor returns the packages to install for rel, in install order. A source install
// swaps the distro dashboard packages for the build dependencies.
func PackagesFor(rel release.Release, sourceInstall bool) []string {
	pkgs := slices.Clone(basePackages)
	if rel.AtLeast(release.Mitaka) {
		pkgs = append(pkgs, databaseDriverPackage)
	}
	if !sourceInstall {
		return pkgs
	}
	for _, p := range sourceBuildPackages {
		if !slices.Contains(pkgs, p) {
			pkgs = append(pkgs, p)
		}
	}
	return slices.DeleteFunc(pkgs, func(p string) bool {
		return slices.Contains(sourceBlacklist, p)
	})
}
