package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.Redis.Password)

	return out
}

// redact replaces a non-empty string with the placeholder.
func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
