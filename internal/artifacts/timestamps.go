package artifacts

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatTimestamp renders non-negative seconds as HH:MM:SS with a
// millisecond suffix joined by sep (comma for SRT, dot for WebVTT).
// Fractional milliseconds round to the nearest whole millisecond, and
// hours are not clamped so values past one hour stay correct.
func FormatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	totalMillis -= hours * 3_600_000
	minutes := totalMillis / 60_000
	totalMillis -= minutes * 60_000
	secs := totalMillis / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, millis)
}

// ParseTimestamp reverses FormatTimestamp, accepting either millisecond
// separator.
func ParseTimestamp(value string) (float64, error) {
	normalized := strings.Replace(value, ",", ".", 1)
	parts := strings.Split(normalized, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed timestamp %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q: %w", value, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q: %w", value, err)
	}
	secs, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q: %w", value, err)
	}
	return float64(hours)*3600 + float64(minutes)*60 + secs, nil
}
