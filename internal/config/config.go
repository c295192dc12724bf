// Package config loads the charm configuration options.
package config

// Config is the charm configuration. Keys mirror the charm's config options.
type Config struct {
	OpenStackOrigin    string `toml:"openstack-origin" default:"distro" validate:"required"`
	OpenStackOriginGit string `toml:"openstack-origin-git"`
	Series             string `toml:"series" default:"xenial" validate:"required"`

	Debug          bool   `toml:"debug"`
	UbuntuTheme    bool   `toml:"ubuntu-theme" default:"true"`
	DefaultRole    string `toml:"default-role" default:"Member" validate:"required"`
	Secret         string `toml:"secret"`
	Webroot        string `toml:"webroot" default:"/horizon" validate:"required,startswith=/"`
	SessionTimeout int    `toml:"session-timeout" default:"3600" validate:"gte=1"`
	UseSyslog      bool   `toml:"use-syslog"`
	EnableRouter   bool   `toml:"enable-router" default:"true"`

	// SSL material is base64 encoded.
	SSLCert string `toml:"ssl-cert" validate:"required_with=SSLKey,omitempty,base64"`
	SSLKey  string `toml:"ssl-key" validate:"required_with=SSLCert,omitempty,base64"`
	SSLCA   string `toml:"ssl-ca" validate:"omitempty,base64"`

	// HAProxy timeouts in milliseconds.
	HAProxyServerTimeout  int `toml:"haproxy-server-timeout" default:"90000" validate:"gte=0"`
	HAProxyClientTimeout  int `toml:"haproxy-client-timeout" default:"90000" validate:"gte=0"`
	HAProxyQueueTimeout   int `toml:"haproxy-queue-timeout" default:"9000" validate:"gte=0"`
	HAProxyConnectTimeout int `toml:"haproxy-connect-timeout" default:"9000" validate:"gte=0"`

	PreInstallCleanup bool   `toml:"pre-install-cleanup"`
	GitCloneAttempts  uint   `toml:"git-clone-attempts" default:"3" validate:"gte=1,lte=10"`
	StateDir          string `toml:"state-dir" default:"/var/lib/charm/openstack-dashboard" validate:"required"`
	TemplatesDir      string `toml:"templates-dir"`
}

// SourceInstall reports whether openstack-origin-git requests a source install.
func (c *Config) SourceInstall() bool {
	return c.OpenStackOriginGit != ""
}

// SSLConfigured reports whether a certificate and key were supplied.
func (c *Config) SSLConfigured() bool {
	return c.SSLCert != "" && c.SSLKey != ""
}
