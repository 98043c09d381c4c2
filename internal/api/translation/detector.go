package translation

import "unicode"

var languageNames = map[string]string{
	"en": "English",
	"ko": "Korean",
	"ja": "Japanese",
	"zh": "Chinese",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"vi": "Vietnamese",
}

// LanguageName returns the English name of an ISO 639-1 code, or the code itself.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// DetectScript classifies text by writing system: Hangul is Korean, kana is
// Japanese, Han without kana is Chinese, anything else English.
func DetectScript(text string) string {
	var hangul, kana, han bool
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul = true
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana = true
		case unicode.Is(unicode.Han, r):
			han = true
		}
	}
	switch {
	case hangul:
		return "ko"
	case kana:
		return "ja"
	case han:
		return "zh"
	default:
		return "en"
	}
}
