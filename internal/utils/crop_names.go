package utils

import (
	"strings"
	"unicode"
)

// cropAliases maps common alternative names (lowercase) to the names used by
// the model and reference tables.
var cropAliases = map[string]string{
	"corn":           "Maize",
	"sweet corn":     "Maize",
	"makka":          "Maize",
	"peanut":         "Groundnut",
	"peanuts":        "Groundnut",
	"ground nut":     "Groundnut",
	"moongphali":     "Groundnut",
	"cow pea":        "Cowpea",
	"black-eyed pea": "Cowpea",
	"black eyed pea": "Cowpea",
	"lobia":          "Cowpea",
	"gehun":          "Wheat",
	"wheat(atta)":    "Wheat",
	"kela":           "Banana",
	"plantain":       "Banana",
	"banana - green": "Banana",
	"banana(green)":  "Banana",
	"bengal gram":    "Chickpea",
	"chick pea":      "Chickpea",
	"chana":          "Chickpea",
	"masoor":         "Lentil",
	"sarson":         "Mustard",
	"soyabean":       "Soybean",
	"soya bean":      "Soybean",
	"french beans":   "Beans",
	"paddy":          "Rice",
	"paddy(dhan)":    "Rice",
}

// NormalizeCropName canonicalizes user-supplied crop names: surrounding
// whitespace is trimmed, inner whitespace collapsed, known aliases mapped to
// the canonical name, and anything else title-cased ("kale" -> "Kale").
func NormalizeCropName(name string) string {
	cleaned := strings.Join(strings.Fields(name), " ")
	if cleaned == "" {
		return ""
	}

	if canonical, ok := cropAliases[strings.ToLower(cleaned)]; ok {
		return canonical
	}

	return titleCase(cleaned)
}

func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upper := true
	for _, r := range s {
		if upper {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		upper = r == ' ' || r == '-' || r == '('
	}
	return b.String()
}
