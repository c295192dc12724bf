package messages

// CLI messages for hook commands.
const (
	// RootUse is the CLI command name.
	RootUse = "dashboard-charm"
	// RootShort is the short description for the root command.
	RootShort       = "Hook runner for the openstack-dashboard charm"
	RootVersionFlag = "Print version and exit"
	RootConfigFlag  = "Path to the charm config file"
	RootDebugFlag   = "Enable development logging"

	// VersionCommitFmt formats the commit hash for version display.
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"
	VersionTemplate  = "{{.Version}}\n"

	VersionUse   = "version"
	VersionShort = "Print the hook runner version"

	InstallUse   = "install"
	InstallShort = "Install packages (or build from source) and register configuration"

	ConfigChangedUse   = "config-changed"
	ConfigChangedShort = "Upgrade when the origin moved forward, otherwise rewrite configuration"

	UpgradeCharmUse   = "upgrade-charm"
	UpgradeCharmShort = "Re-register and rewrite configuration after a charm upgrade"

	StartUse   = "start"
	StartShort = "Start dashboard services"

	StopUse   = "stop"
	StopShort = "Stop dashboard services"

	UpdateStatusUse   = "update-status"
	UpdateStatusShort = "Assess and report workload status"

	PauseUse   = "pause"
	PauseShort = "Stop services and mark the unit paused"

	ResumeUse   = "resume"
	ResumeShort = "Start services and clear the paused mark"

	RestartMapUse     = "restart-map"
	RestartMapShort   = "Print every managed file and the services restarted when it changes"
	RestartMapAllFlag = "Include files not active for the installed release and layout"

	RestartMapLineFmt = "%s\t%s\n"
	StatusLineFmt     = "%s: %s\n"

	HookFailedFmt = "%s hook failed: %w"
)
