package label

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatValue formats n with the Korean large-number units 조 (1e12),
// 억 (1e8) and 만 (1e4). Values below 1e4 are printed in full, and 만 is
// omitted from 1e10 on.
//
//	FormatValue(1234)      == "1,234"
//	FormatValue(56780000)  == "5,678만"
//	FormatValue(123456789) == "1억 2,345만"
func FormatValue(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return ""
	}
	if n < 1e4 {
		return printer.Sprintf("%d", int64(math.Round(n)))
	}

	var parts []string
	if n > 1e12 {
		parts = append(parts, printer.Sprintf("%d조", int64(math.Floor(n/1e12))%1e4))
	}
	if n > 1e8 {
		eok := n / 1e8
		// 만 follows below 1e10, so 억 must not round up into it.
		if n < 1e10 {
			eok = math.Floor(eok)
		} else {
			eok = math.Round(eok)
		}
		if v := int64(eok) % 1e4; v >= 1 {
			parts = append(parts, printer.Sprintf("%d억", v))
		}
	}
	if n < 1e10 {
		if v := int64(n/1e4) % 1e4; v >= 1 {
			parts = append(parts, printer.Sprintf("%d만", v))
		}
	}
	return strings.Join(parts, " ")
}

// FormatPercent formats ratio as a percentage with the given number of
// decimals.
func FormatPercent(ratio float64, decimals int) string {
	return printer.Sprintf(fmt.Sprintf("%%.%df%%%%", max(decimals, 0)), ratio*100)
}
