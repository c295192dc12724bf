package messages

// Config messages for charm configuration loading and validation.
const (
	// ConfigMissingFileFmt formats missing config file errors.
	ConfigMissingFileFmt      = "missing config file %s: %w"
	ConfigInvalidConfigFmt    = "invalid config %s: %w"
	ConfigUnrecognizedKeysFmt = "%s contains unrecognized keys: %w"
	ConfigDefaultsFailedFmt   = "apply config defaults: %w"
	ConfigExpandPathFmt       = "expand path %s: %w"
	ConfigFieldInvalidFmt     = "%s: %s fails %q"
	ConfigValidationGuidance  = "(check the key against config.toml.example)"
)
