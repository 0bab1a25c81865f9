package services

import (
	"strings"
	"unicode"

	"bagStore/entities"

	"github.com/shopspring/decimal"
)

var currencySuffix = map[entities.Locale]string{
	entities.LocaleRu: "сум",
	entities.LocaleUz: "so'm",
}

// FormatPrice renders an api decimal string as "1 250 000 сум". Unparsable
// input is returned unchanged.
func FormatPrice(raw string, locale entities.Locale) string {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return FormatAmount(d, locale)
}

func FormatAmount(d decimal.Decimal, locale entities.Locale) string {
	suffix, ok := currencySuffix[locale]
	if !ok {
		suffix = currencySuffix[entities.LocaleRu]
	}
	return groupThousands(d) + " " + suffix
}

// ParsePrice reads back a formatted price, ignoring grouping and the suffix.
func ParsePrice(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == '-':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}
	d, err := decimal.NewFromString(strings.Trim(b.String(), "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func groupThousands(d decimal.Decimal) string {
	s := d.Round(2).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
