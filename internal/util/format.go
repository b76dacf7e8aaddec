package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatNumber renders n with thousands separators: 1234567 -> "1,234,567".
func FormatNumber(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return sign + groupThousands(strconv.Itoa(n))
}

// FormatCompact renders n as 999, 1.2K or 3.4M.
func FormatCompact(n int) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1000000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// FormatCurrency renders amount as "$1,234.56".
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	str := fmt.Sprintf("%.2f", amount)
	intPart, decPart, _ := strings.Cut(str, ".")
	return fmt.Sprintf("%s$%s.%s", sign, groupThousands(intPart), decPart)
}

// FormatDuration renders d as "2h 5m" or "42m".
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatBurnRate renders a tokens-per-minute rate.
func FormatBurnRate(rate float64) string {
	switch {
	case rate < 1000:
		return fmt.Sprintf("%.1f tokens/min", rate)
	case rate < 1000000:
		return fmt.Sprintf("%.1fK tokens/min", rate/1000)
	default:
		return fmt.Sprintf("%.1fM tokens/min", rate/1000000)
	}
}

// FormatBytes renders a size as "512 B", "1.5 KB" or "2.0 MB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit && exp < 3; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
