package identity

import (
	"fmt"
	"time"
)

// normalizeShift parses a clock string and renders it as HH:MM. Seconds are
// dropped so all stored shift times compare at minute granularity.
func normalizeShift(s string) (string, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("invalid clock time %q", s)
}
