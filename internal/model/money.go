package model

import "fmt"

// FormatMinor renders minor units as a major-unit decimal string for display
// and logs. 49900 → "499.00".
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
