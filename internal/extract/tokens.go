// tokens.go handles placeholder substitution in extracted files and
// directory names. Substitution is straight string replacement — no
// templating language — applied only to files on a fixed processable
// extension allowlist; everything else is copied byte-for-byte.
package extract

import "strings"

// Placeholder tokens replaced during extraction.
const (
	// TokenProjectName is replaced with the destination project's name.
	TokenProjectName = "__PROJECT_NAME__"

	// TokenProjectDescription is replaced with the project description.
	TokenProjectDescription = "__PROJECT_DESCRIPTION__"
)

// processableExtensions is the allowlist of extensions whose content gets
// token substitution. Binary formats are deliberately absent: replacing
// bytes inside them would corrupt the file.
var processableExtensions = map[string]bool{
	".json":  true,
	".jsonc": true,
	".md":    true,
	".txt":   true,
	".yml":   true,
	".yaml":  true,
}

// ignoredDirs are directory names excluded from extraction: build
// artifacts and VCS state that a template archive should not carry into
// a fresh project.
var ignoredDirs = map[string]bool{
	"bin":          true,
	"obj":          true,
	".git":         true,
	".vs":          true,
	"node_modules": true,
}

// substituteTokens replaces the placeholder tokens in s.
func substituteTokens(s string, projectName string, projectDescription string) string {
	s = strings.ReplaceAll(s, TokenProjectName, projectName)
	s = strings.ReplaceAll(s, TokenProjectDescription, projectDescription)
	return s
}

// isProcessable reports whether a file's content should get token
// substitution, by extension.
func isProcessable(ext string) bool {
	return processableExtensions[strings.ToLower(ext)]
}

// isIgnoredPath reports whether any segment of the archive-relative path
// is an ignored directory.
func isIgnoredPath(segments []string) bool {
	for _, seg := range segments {
		if ignoredDirs[seg] {
			return true
		}
	}
	return false
}
