package utils

import (
	"math"
	"strconv"
	"strings"
)

// UnmaskValue strips every non-digit character
func UnmaskValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCPF renders an 11-digit CPF as XXX.XXX.XXX-XX; other lengths are returned as bare digits
func FormatCPF(cpf string) string {
	d := UnmaskValue(cpf)
	if len(d) != 11 {
		return d
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

// FormatPhone renders 11-digit mobile numbers as (XX) XXXXX-XXXX and 10-digit
// landlines as (XX) XXXX-XXXX; other lengths are returned as bare digits
func FormatPhone(phone string) string {
	d := UnmaskValue(phone)
	switch len(d) {
	case 11:
		return "(" + d[0:2] + ") " + d[2:7] + "-" + d[7:11]
	case 10:
		return "(" + d[0:2] + ") " + d[2:6] + "-" + d[6:10]
	default:
		return d
	}
}

// FormatCurrency renders an amount in Brazilian reais, e.g. "R$ 1.234,56".
// The separator after the symbol is a no-break space, as in pt-BR locale output.
func FormatCurrency(value float64) string {
	cents := int64(math.Round(math.Abs(value) * 100))
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if value < 0 && cents > 0 {
		sign = "-"
	}

	fracStr := strconv.FormatInt(frac, 10)
	if frac < 10 {
		fracStr = "0" + fracStr
	}
	return sign + "R$\u00a0" + grouped.String() + "," + fracStr
}
