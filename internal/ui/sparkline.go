package ui

import "strings"

// SparklineChars are the Unicode block characters for rendering sparklines.
// 8 levels of height from empty to full.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values oldest first, scaled to the largest value.
// A series of zeros renders as the lowest bar.
func Sparkline(values []int64) string {
	var peak int64
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}

	var sb strings.Builder
	sb.Grow(len(values) * 3) // UTF-8 chars can be up to 3 bytes
	top := len(SparklineChars) - 1
	for _, v := range values {
		idx := 0
		if peak > 0 && v > 0 {
			idx = int(float64(v) / float64(peak) * float64(top))
		}
		idx = max(0, min(idx, top))
		sb.WriteRune(SparklineChars[idx])
	}
	return sb.String()
}
