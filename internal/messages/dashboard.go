package messages

// Dashboard messages for release resolution, registration, and lifecycle operations.
const (
	DashboardResolveReleaseFailedFmt   = "resolve release from %q: %w"
	DashboardInstalledReleaseFailedFmt = "resolve installed release: %w"
	DashboardConfigureSourceFailedFmt  = "configure install source %q: %w"
	DashboardRevisionFailedFmt         = "compare %s revision with %s: %w"
	DashboardRemoveStaleFailedFmt      = "remove stale config %s: %w"
	DashboardFingerprintFailedFmt      = "fingerprint %s: %w"
	DashboardRestartFailedFmt          = "restart %s: %w"
	DashboardServiceFailedFmt          = "%s %s: %w"
	DashboardPauseMarkerFailedFmt      = "update pause marker %s: %w"
	DashboardSecretFailedFmt           = "load secret key %s: %w"
	DashboardDecodeSSLFailedFmt        = "decode %s: %w"
	DashboardWriteSSLFailedFmt         = "write %s: %w"
	DashboardRelationFailedFmt         = "read %s relation: %w"
	DashboardUnitAddressFailedFmt      = "unit private-address: %w"
	DashboardSourceInstallFailedFmt    = "install from source: %w"

	StatusPaused                 = "Paused. Use 'resume' action to resume normal service."
	StatusMissingRelationsFmt    = "Missing relations: %s"
	StatusIncompleteRelationsFmt = "Incomplete relations: %s"
	StatusServicesNotRunningFmt  = "Services not running that should be: %s"
	StatusReady                  = "Unit is ready"
	StatusInstallingPackages     = "Installing packages"
	StatusInstallingFromSource   = "Installing from source"
	StatusUpgrading              = "Performing OpenStack upgrade"
)
