package recognize

import (
	"fmt"

	"golang.org/x/text/language"
)

// LanguageCode maps a locale such as "ja_JP" or "en-US" to the two-letter
// language code whisper expects.
func LanguageCode(locale string) (string, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("recognize: parse locale %q: %w", locale, err)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", fmt.Errorf("recognize: no language in locale %q", locale)
	}
	return base.String(), nil
}

// unspaced lists languages written without spaces between words.
var unspaced = map[string]bool{
	"ja": true,
	"zh": true,
	"th": true,
	"lo": true,
	"km": true,
	"my": true,
}

// WordSeparator returns the string placed between joined transcript pieces.
func WordSeparator(lang string) string {
	if unspaced[lang] {
		return ""
	}
	return " "
}

// join concatenates two transcript pieces with sep, skipping empty ones.
func join(a, b, sep string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + sep + b
	}
}
