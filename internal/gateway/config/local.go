package config

// applyLocalDefaults fills in development-only settings so the gateway can
// start from an empty environment. OAuth still fails at the provider until
// real credentials are configured.
func applyLocalDefaults(cfg *Config) {
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = "dev-session-secret-change-me"
	}
	if cfg.GitHub.ClientID == "" {
		cfg.GitHub.ClientID = "local-client-id"
	}
	if cfg.GitHub.ClientSecret == "" {
		cfg.GitHub.ClientSecret = "local-client-secret"
	}
	cfg.Session.Secure = false
}
