// Package filters converts catalog filter state to and from URL query parameters.
package filters

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"bagStore/entities"
)

const (
	ParamBrand    = "brand"
	ParamSize     = "size"
	ParamColor    = "color"
	ParamCategory = "category"
	ParamPriceMin = "price__gt"
	ParamPriceMax = "price__lt"
)

var allSentinels = map[string]bool{
	"all":      true,
	"всё":      true,
	"все":      true,
	"barchasi": true,
	"hammasi":  true,
}

// SearchParam is the free-text parameter name for a locale, e.g. title_ru__icontains.
func SearchParam(locale entities.Locale) string {
	if !locale.Valid() {
		locale = entities.LocaleRu
	}
	return "title_" + string(locale) + "__icontains"
}

// IsAll reports whether a selector value is the "All" choice of a filter dropdown.
func IsAll(v string) bool {
	return allSentinels[strings.ToLower(strings.TrimSpace(v))]
}

// FromQuery parses recognized parameters. Only the active locale's search
// key is read. Unknown keys are ignored, missing keys and unparsable prices
// fall back to defaults.
func FromQuery(values url.Values, locale entities.Locale) entities.FilterState {
	state := entities.DefaultFilterState()

	state.Search = strings.TrimSpace(values.Get(SearchParam(locale)))
	state.Brands = firstOf(values[ParamBrand], true)
	state.Sizes = firstOf(values[ParamSize], false)
	state.Colors = firstOf(values[ParamColor], false)

	if c := strings.TrimSpace(values.Get(ParamCategory)); c != "" && !IsAll(c) {
		state.Category = c
	}
	if p, ok := parsePrice(values.Get(ParamPriceMin)); ok {
		state.PriceMin = p
	}
	if p, ok := parsePrice(values.Get(ParamPriceMax)); ok {
		state.PriceMax = p
	}
	return state
}

// ToQuery emits only the fields that differ from the default state.
func ToQuery(state entities.FilterState, locale entities.Locale) url.Values {
	state = Normalize(state)
	values := url.Values{}
	if state.Search != "" {
		values.Set(SearchParam(locale), state.Search)
	}
	if len(state.Brands) > 0 {
		values.Set(ParamBrand, state.Brands[0])
	}
	if len(state.Sizes) > 0 {
		values.Set(ParamSize, state.Sizes[0])
	}
	if len(state.Colors) > 0 {
		values.Set(ParamColor, state.Colors[0])
	}
	if state.Category != "" {
		values.Set(ParamCategory, state.Category)
	}
	if state.PriceMin != entities.DefaultPriceMin {
		values.Set(ParamPriceMin, state.PriceMin)
	}
	if state.PriceMax != entities.DefaultPriceMax {
		values.Set(ParamPriceMax, state.PriceMax)
	}
	return values
}

// Normalize trims values, keeps only the honored first selection and turns
// "All" and empty selections into the default.
func Normalize(state entities.FilterState) entities.FilterState {
	out := entities.DefaultFilterState()
	out.Search = strings.TrimSpace(state.Search)
	out.Brands = firstOf(state.Brands, true)
	out.Sizes = firstOf(state.Sizes, false)
	out.Colors = firstOf(state.Colors, false)
	if c := strings.TrimSpace(state.Category); c != "" && !IsAll(c) {
		out.Category = c
	}
	if p, ok := parsePrice(state.PriceMin); ok {
		out.PriceMin = p
	}
	if p, ok := parsePrice(state.PriceMax); ok {
		out.PriceMax = p
	}
	return out
}

// Encode renders the query string in a stable order so that equal filter
// states always produce the same cache key.
func Encode(state entities.FilterState, locale entities.Locale) string {
	return ToQuery(state, locale).Encode()
}

func IsDefault(state entities.FilterState) bool {
	return len(ToQuery(state, entities.LocaleRu)) == 0
}

func firstOf(list []string, allowAll bool) []string {
	for _, v := range list {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if allowAll && IsAll(v) {
			return []string{}
		}
		return []string{v}
	}
	return []string{}
}

func parsePrice(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return raw, true
}
