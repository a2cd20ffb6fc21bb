package config

import "strings"

// MaskedUserAgent returns the configured EDGAR identity with the mailbox part
// of the e-mail address masked, for log output.
func (c *Config) MaskedUserAgent() string {
	return maskIdentity(c.EDGAR.UserAgent)
}

// maskIdentity keeps the first character of the mailbox and the domain:
// "Jane Doe jane@example.com" -> "Jane Doe j***@example.com".
func maskIdentity(ua string) string {
	fields := strings.Fields(ua)
	for i, f := range fields {
		at := strings.IndexByte(f, '@')
		if at <= 0 {
			continue
		}
		fields[i] = f[:1] + "***" + f[at:]
	}
	if len(fields) == 0 {
		return "***"
	}
	return strings.Join(fields, " ")
}
