package dashboard

// Managed configuration files.
const (
	LocalSettings    = "/etc/openstack-dashboard/local_settings.py"
	HAProxyConf      = "/etc/haproxy/haproxy.cfg"
	PortsConf        = "/etc/apache2/ports.conf"
	ApacheConf       = "/etc/apache2/conf.d/openstack-dashboard.conf"
	ApacheSSL        = "/etc/apache2/sites-available/default-ssl"
	ApacheDefault    = "/etc/apache2/sites-available/default"
	Apache24Conf     = "/etc/apache2/conf-available/openstack-dashboard.conf"
	Apache24SSL      = "/etc/apache2/sites-available/default-ssl.conf"
	Apache24Default  = "/etc/apache2/sites-available/000-default.conf"
	RouterSetting    = "/usr/share/openstack-dashboard/openstack_dashboard/enabled/_40_router.py"
	KeystoneV3Policy = "/usr/share/openstack-dashboard/openstack_dashboard/conf/keystonev3_policy.json"
)

const (
	// ApacheDir gates layout detection; it is absent before apache2 is installed.
	ApacheDir = "/etc/apache2"
	// ApacheLayoutThreshold is the first apache2 revision using conf-available.
	ApacheLayoutThreshold = "2.4"

	// VersionPackage is the package whose version is shown for the application.
	VersionPackage = "openstack-dashboard"

	SSLCertPath          = "/etc/ssl/certs/dashboard.cert"
	SSLKeyPath           = "/etc/ssl/private/dashboard.key"
	SSLCAPath            = "/etc/ssl/certs/dashboard-ca.cert"
	SnakeoilCertPath     = "/etc/ssl/certs/ssl-cert-snakeoil.pem"
	SnakeoilKeyPath      = "/etc/ssl/private/ssl-cert-snakeoil.key"
	pausedMarkerName     = "paused"
	secretKeyName        = "secret-key"
	statsPasswordName    = "haproxy-stats-password"
	httpPort             = 70
	httpsPort            = 433
	haproxyStatsPort     = 8888
	databaseName         = "horizon"
	databaseUser         = "horizon"
	defaultAPIVersion    = "2"
	defaultServiceScheme = "http"
)

// Services named in restart maps.
const (
	ServiceApache    = "apache2"
	ServiceMemcached = "memcached"
	ServiceHAProxy   = "haproxy"
)

// Relation endpoints.
const (
	EndpointIdentity = "identity-service"
	EndpointSharedDB = "shared-db"
	EndpointCluster  = "cluster"
	EndpointPlugin   = "dashboard-plugin"
)

// Context provider identifiers.
const (
	ContextHorizon        = "horizon"
	ContextIdentity       = "identity-service"
	ContextSyslog         = "syslog"
	ContextLocalSettings  = "local-settings"
	ContextApache         = "apache"
	ContextApacheSSL      = "apache-ssl"
	ContextHorizonHAProxy = "horizon-haproxy"
	ContextHAProxy        = "haproxy"
	ContextRouter         = "router-setting"
	ContextSharedDB       = "shared-db"
)
