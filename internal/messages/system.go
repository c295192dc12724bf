package messages

// System messages for host, package, agent, and templating operations.
const (
	// ReleaseUnknownFmt formats unknown release errors.
	ReleaseUnknownFmt = "unknown openstack release %q"

	HostCommandFailedFmt       = "%s exited with code %d: %v"
	HostCommandFailedStderrFmt = "%s exited with code %d: %s"
	HostCreateDirFailedFmt     = "create directory %s: %w"
	HostCopyFailedFmt          = "copy %s to %s: %w"
	HostCopyTreeDestExistsFmt  = "copy tree: destination %s already exists"
	HostChmodFailedFmt         = "chmod %s: %w"
	HostChownFailedFmt         = "chown %s to %s:%s: %w"
	HostLookupUserFailedFmt    = "look up user %s: %w"
	HostLookupGroupFailedFmt   = "look up group %s: %w"

	AptUnsupportedSourceFmt = "unsupported install source %q"
	AptAddSourceFailedFmt   = "add package source %s: %w"
	AptCommandFailedFmt     = "%s: %w"
	AptNotInstalledFmt      = "package %s is not installed"

	AgentToolFailedFmt   = "hook tool %s: %w"
	AgentDecodeFailedFmt = "decode %s output: %w"

	TemplatingNotRegisteredFmt      = "config file %s is not registered"
	TemplatingContextFailedFmt      = "context %s for %s: %w"
	TemplatingReadFailedFmt         = "read template %s: %w"
	TemplatingNotFoundFmt           = "no template %s for release %s or older"
	TemplatingParseFailedFmt        = "parse template %s: %w"
	TemplatingExecuteFailedFmt      = "render template %s: %w"
	TemplatingReadExistingFailedFmt = "read existing %s: %w"
	TemplatingWriteFailedFmt        = "write %s: %w"
)

// Atomic write messages.
const (
	FsutilCreateTempFmt = "create temp file for %s: %w"
	FsutilWriteTempFmt  = "write temp file for %s: %w"
	FsutilSyncTempFmt   = "sync temp file for %s: %w"
	FsutilChmodTempFmt  = "chmod temp file for %s: %w"
	FsutilCloseTempFmt  = "close temp file for %s: %w"
	FsutilRenameTempFmt = "rename temp file into %s: %w"
)
