// Package format renders durations and sizes for display.
package format

import (
	"fmt"
	"strings"
)

// NeverExpires is shown for keys without a TTL.
const NeverExpires = "never expires"

// FormatTTL renders a TTL in seconds as "1 day 1 hour 1 minute 1 second".
// Zero components are omitted unless the whole value is zero. -1 means no expiry.
func FormatTTL(seconds int64) string {
	if seconds == -1 {
		return NeverExpires
	}

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, unit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, unit(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, unit(minutes, "minute"))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, unit(secs, "second"))
	}
	return strings.Join(parts, " ")
}

func unit(n int64, name string) string {
	if n == 1 {
		return "1 " + name
	}
	return fmt.Sprintf("%d %ss", n, name)
}

// FormatBytes renders a byte count with a binary unit, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	const k = 1024
	if n < k {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(k), 0
	for v := n / k; v >= k; v /= k {
		div *= k
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
