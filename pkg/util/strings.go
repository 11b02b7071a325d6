package util

import (
	"path/filepath"
	"strings"
)

// MaxLogBodySize is the default maximum body size for logging (10KB).
const MaxLogBodySize = 10 * 1024

// TruncateBody truncates a string to maxSize bytes, appending "...(truncated)" if truncated.
// If maxSize <= 0, uses MaxLogBodySize.
func TruncateBody(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxLogBodySize
	}
	if len(data) > maxSize {
		return data[:maxSize] + "...(truncated)"
	}
	return data
}

// SafeFilePath cleans a relative path and reports whether it stays inside the
// current directory. Absolute paths and paths escaping via ".." are rejected.
func SafeFilePath(p string) (string, bool) {
	cleaned, ok := cleanPath(p)
	if !ok || filepath.IsAbs(cleaned) {
		return "", false
	}
	return cleaned, true
}

// SafeFilePathAllowAbsolute is like SafeFilePath but accepts absolute paths.
// Used for operator-supplied locations such as WSDL files.
func SafeFilePathAllowAbsolute(p string) (string, bool) {
	return cleanPath(p)
}

func cleanPath(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	// Windows separators are never normalized, so "..\" is suspicious on any OS.
	if strings.Contains(p, `..\`) || strings.Contains(p, `\..`) {
		return "", false
	}
	cleaned := filepath.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
