package exporter

import (
	"fmt"
	"math"
	"strconv"
)

// formatConc formats a molar concentration in scientific notation.
func formatConc(c float64) string {
	return fmt.Sprintf("%.6e", c)
}

// formatFloat formats a response value or parameter estimate. NaN (the
// singular-covariance marker for standard errors) is written out literally
// so the export never disguises an undefined value as a number.
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', 8, 64)
}

// formatInt formats an integer cell.
func formatInt(i int) string {
	return strconv.Itoa(i)
}
