package redact

import "regexp"

// Pattern is a named detector for one kind of sensitive value.
type Pattern struct {
	Name  string
	Type  string // placeholder prefix: [IPV4:hash], [EMAIL:hash], ...
	Regex *regexp.Regexp
}

// Built-in patterns in the order they are applied. Credentials go first so a
// token that embeds an address is replaced as a whole.
var builtIn = []Pattern{
	{"private_key", "PRIVATE_KEY", regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`)},
	{"jwt", "JWT", regexp.MustCompile(`\beyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*\b`)},
	{"aws_key", "AWS_KEY", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"api_key", "SECRET", regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|token|secret|password|passwd|pwd)["\s]*[:=]["\s]*[a-zA-Z0-9_\-]{8,}`)},
	{"email", "EMAIL", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"uuid", "UUID", regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)},
	{"mac_address", "MAC", regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}\b`)},
	{"ipv4", "IPV4", regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)},
	{"ipv6", "IPV6", regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b|\b(?:[0-9a-fA-F]{1,4}:){1,6}:(?:[0-9a-fA-F]{1,4}\b)?`)},
}

// DefaultPatterns returns the names enabled when none are configured.
func DefaultPatterns() []string {
	return []string{"private_key", "jwt", "aws_key", "api_key", "email", "ipv4", "ipv6"}
}

// PatternNames lists every built-in pattern name.
func PatternNames() []string {
	names := make([]string, len(builtIn))
	for i, p := range builtIn {
		names[i] = p.Name
	}
	return names
}

// lookup returns the named patterns in application order. Unknown names are
// reported back to the caller.
func lookup(names []string) (patterns []Pattern, unknown []string) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for _, p := range builtIn {
		if want[p.Name] {
			patterns = append(patterns, p)
			delete(want, p.Name)
		}
	}
	for _, n := range names {
		if want[n] {
			unknown = append(unknown, n)
			delete(want, n)
		}
	}
	return patterns, unknown
}
