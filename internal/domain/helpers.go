package domain

import (
	"strings"
	"time"
)

var versionLayouts = []string{"2006-01-02", "2006-01", "2006"}

// DateFromVersion turns date-like versions ("2015-08") into a calendar date
// ("2015-08-01"). Other versions yield "".
func DateFromVersion(version string) string {
	for _, layout := range versionLayouts {
		if t, err := time.Parse(layout, version); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// IsPathComponent reports whether s can be used as a single file name
// without leaving its directory.
func IsPathComponent(s string) bool {
	return strings.TrimSpace(s) != "" && !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}
