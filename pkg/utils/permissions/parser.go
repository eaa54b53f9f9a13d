// Package permissions parses and formats the octal file modes accepted in
// configuration files.
package permissions

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default permission constants (user-only access for security)
const (
	DefaultFilePerms os.FileMode = 0o600 // Read/write for owner only
	DefaultDirPerms  os.FileMode = 0o700 // Read/write/execute for owner only
)

// ParseOctalString parses a permission string such as "600", "0600" or
// "0o600". Empty input yields DefaultFilePerms.
func ParseOctalString(s string) (os.FileMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFilePerms, nil
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	val, err := strconv.ParseUint(digits, 8, 32)
	if err != nil {
		return DefaultFilePerms, fmt.Errorf("invalid permission string %q: %w", s, err)
	}
	if val > 0o777 {
		return DefaultFilePerms, fmt.Errorf("invalid permission string %q: only permission bits are allowed", s)
	}
	return os.FileMode(val), nil
}

// FormatOctal formats a permission value as an octal string
func FormatOctal(perm os.FileMode) string {
	return fmt.Sprintf("0%o", perm.Perm())
}

// IsOwnerWritable reports whether the owner may write the file.
func IsOwnerWritable(perm os.FileMode) bool {
	return perm&0o200 != 0
}
