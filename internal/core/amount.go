package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount parses a server-provided decimal amount. The backend is not
// consistent about numeric encoding: balances arrive as JSON strings
// ("1200.50"), sometimes with currency grouping. A value that cannot be
// parsed contributes 0; a NaN leaking into a sum would silently corrupt
// every aggregate downstream.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
