package config

import "strings"

// Sanitize returns a copy of cfg with secrets masked, for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	if out.Security.EncryptionKey != "" {
		out.Security.EncryptionKey = maskSecret(out.Security.EncryptionKey)
	}
	out.Server.OriginPatterns = append([]string(nil), cfg.Server.OriginPatterns...)
	out.Server.AdminAllowList = append([]string(nil), cfg.Server.AdminAllowList...)
	out.Auth.Federated.Issuers = append([]string(nil), cfg.Auth.Federated.Issuers...)
	out.Auth.Federated.AllowedOrgs = append([]string(nil), cfg.Auth.Federated.AllowedOrgs...)
	return &out
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
