package messages

// Source install messages.
const (
	SourceProjectsInvalidFmt      = "invalid openstack-origin-git: %w"
	SourceProjectsEmpty           = "openstack-origin-git lists no repositories"
	SourceProjectsFirstFmt        = "first repository must be %q, got %q"
	SourceProjectsLastFmt         = "last repository must be %q, got %q"
	SourceProjectFieldRequiredFmt = "repository %d: %s is required"
	SourceProjectDuplicateFmt     = "repository %q is listed twice"
	SourceCloneFailedFmt          = "clone %s: %w"
	SourcePipInstallFailedFmt     = "pip install %s: %w"
	SourceUserSetupFailedFmt      = "set up user %s: %w"
	SourceCopyAssetFailedFmt      = "install %s: %w"
	SourceSymlinkFailedFmt        = "link %s to %s: %w"
	SourceManageFailedFmt         = "manage.py %s: %w"
	SourceEnableConfFailedFmt     = "enable apache conf %s: %w"
	SourceRestartFailedFmt        = "restart %s: %w"
)
