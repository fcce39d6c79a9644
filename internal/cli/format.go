// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/runledger/internal/model"
)

// FormatGold renders a gold amount with 亿 / 万 units.
// e.g., 250000000 -> "2.50亿金", 30000 -> "3万金", 1234 -> "1234金"
func FormatGold(v int64) string {
	if v == 0 {
		return "0金"
	}
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 100_000_000:
		return trimAmount(float64(v)/100_000_000) + "亿金"
	case abs >= 10_000:
		return trimAmount(float64(v)/10_000) + "万金"
	default:
		return strconv.FormatInt(v, 10) + "金"
	}
}

func trimAmount(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return fmt.Sprintf("%.2f", f)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatTime renders a run boundary. The zero time is the sentinel's 未找到.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return model.NotFound
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatDuration formats a run length.
// e.g., 3725s -> "1h 2m", 125s -> "2m", 45s -> "45s"
func FormatDuration(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatWeekday returns the Chinese short weekday name.
func FormatWeekday(d time.Weekday) string {
	days := []string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}
	if d >= 0 && int(d) < len(days) {
		return days[d]
	}
	return "???"
}

// FormatSpecials joins special purchases as "item(price)".
func FormatSpecials(items []model.SpecialPurchase) string {
	if len(items) == 0 {
		return "-"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.Item + "(" + FormatGold(it.Price) + ")"
	}
	return strings.Join(parts, "、")
}
