package catalog

import (
	"fmt"
	"time"
)

// FormatTimestamp renders d as HH:MM:SS, truncating sub-second precision.
// Negative durations render as 00:00:00.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
