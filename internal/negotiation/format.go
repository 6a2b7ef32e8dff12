package negotiation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const maxFractionDigits = 3

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a number as a dollar amount with en-US thousands
// grouping and at most three fraction digits, e.g. 1500 -> "$1,500".
func FormatAmount(v float64) string {
	return "$" + groupDigits(v)
}

func groupDigits(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	scale := math.Pow10(maxFractionDigits)
	v = math.Round(v*scale) / scale
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return amountPrinter.Sprintf("%d", int64(v))
	}

	decimals := 0
	plain := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(plain, '.'); i >= 0 {
		decimals = len(plain) - i - 1
	}
	if decimals > maxFractionDigits {
		decimals = maxFractionDigits
	}
	return amountPrinter.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}
