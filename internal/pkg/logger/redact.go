package logger

import "strings"

// RedactEmail masks an email address for safe logging, e.g.
// "john.doe@example.com" becomes "jo***@example.com". Local parts of two
// characters or fewer are fully masked.
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactIP masks the host portion of an IP address, keeping enough to
// distinguish networks in logs. "192.168.10.42" becomes "192.168.x.x".
// IPv6 addresses keep the first two groups.
func RedactIP(ip string) string {
	if strings.Contains(ip, ":") {
		groups := strings.Split(ip, ":")
		if len(groups) < 2 {
			return "::x"
		}
		return groups[0] + ":" + groups[1] + "::x"
	}
	octets := strings.Split(ip, ".")
	if len(octets) != 4 {
		return "x.x.x.x"
	}
	return octets[0] + "." + octets[1] + ".x.x"
}
