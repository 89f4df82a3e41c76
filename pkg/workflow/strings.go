// This file provides the scalar formatting helpers the compiler uses when
// writing workflow YAML by hand.
//
// # Quoting Patterns
//
// Workflow files are rendered with strings.Builder so key order, comments and
// blank lines stay exactly as written. Values therefore need two kinds of
// quoting:
//
//   - yamlString: YAML scalar quoting. Values that YAML would read as
//     something other than the same string (numbers, booleans, values with
//     ": " or a leading indicator) are single-quoted.
//   - shellQuote: POSIX shell quoting for values embedded in run scripts.
//
// Example:
//
//	yamlString("3.10")            // returns "'3.10'"
//	yamlString("ubuntu-latest")   // returns "ubuntu-latest"
//	shellQuote("Update README")   // returns "'Update README'"
package workflow

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gh-download/ghpipe/pkg/logger"
)

var stringsLog = logger.New("workflow:strings")

// yamlKeywords are plain scalars YAML resolves to booleans or null.
var yamlKeywords = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true, "on": true, "off": true,
	"y": true, "n": true, "null": true, "~": true,
}

// yamlString returns s as a YAML scalar that reads back as the same string.
func yamlString(s string) string {
	if needsYAMLQuotes(s) {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return s
}

func needsYAMLQuotes(s string) bool {
	if s == "" || s != strings.TrimSpace(s) {
		return true
	}
	if strings.ContainsAny(s, "\n\t") || strings.Contains(s, ": ") || strings.Contains(s, " #") ||
		strings.HasSuffix(s, ":") {
		return true
	}
	if strings.ContainsRune("-?:,[]{}#&*!|>'\"%@`", rune(s[0])) {
		return true
	}
	if yamlKeywords[strings.ToLower(s)] {
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return false
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=+:,@", r))
	}) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

var secretPattern = regexp.MustCompile(`secrets\.([A-Z][A-Z0-9_]*)`)

// CollectSecretReferences returns the sorted, de-duplicated names of the
// repository secrets a rendered workflow reads.
func CollectSecretReferences(yamlContent string) []string {
	seen := make(map[string]bool)
	for _, match := range secretPattern.FindAllStringSubmatch(yamlContent, -1) {
		seen[match[1]] = true
	}

	secrets := make([]string, 0, len(seen))
	for secret := range seen {
		secrets = append(secrets, secret)
	}
	sort.Strings(secrets)

	stringsLog.Printf("Found %d unique secret reference(s) in workflow", len(secrets))
	return secrets
}
