package vault

import (
	"fmt"
	"strings"

	"github.com/liminal-notes/vaultcore/internal/apperr"
)

// Normalize converts a raw path into vault-relative form: backslashes
// become forward slashes, leading slashes are stripped, and a "./"
// prefix is removed. It is a pure, total function and never fails.
func Normalize(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	p = strings.TrimLeft(p, "/")
	p = strings.TrimPrefix(p, "./")
	return p
}

// AssertSafe validates a vault-relative path and returns its normalized
// form. It fails with apperr.ErrInvalidPath when the input is empty or
// whitespace-only, contains a null byte, is absolute (POSIX or Windows
// drive-letter style), or contains a ".." segment after normalization.
func AssertSafe(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("vault: empty path: %w", apperr.ErrInvalidPath)
	}
	if strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("vault: path contains null byte: %w", apperr.ErrInvalidPath)
	}
	if len(path) >= 2 && isDriveLetter(path[0]) && path[1] == ':' {
		return "", fmt.Errorf("vault: absolute path %q: %w", path, apperr.ErrInvalidPath)
	}
	// Absolute prefixes are rejected before Normalize strips them.
	if path[0] == '/' || path[0] == '\\' {
		return "", fmt.Errorf("vault: absolute path %q: %w", path, apperr.ErrInvalidPath)
	}

	normalized := Normalize(path)
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return "", fmt.Errorf("vault: path %q contains '..' segment: %w", path, apperr.ErrInvalidPath)
		}
	}
	return normalized, nil
}

// Join concatenates parts with "/" and normalizes the result. Internal
// empty segments are deliberately not collapsed.
func Join(parts ...string) string {
	return Normalize(strings.Join(parts, "/"))
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
