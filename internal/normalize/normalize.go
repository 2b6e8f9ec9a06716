// Package normalize canonicalizes admin-entered book metadata so that
// grant matching and search filtering compare like with like.
package normalize

import "strings"

// iso639_2to1 maps ISO 639-2 (3-letter) codes to ISO 639-1 (2-letter) codes.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var iso639_2to1 = map[string]string{
	"eng": "en", "spa": "es", "fra": "fr", "deu": "de", "ita": "it",
	"por": "pt", "nld": "nl", "rus": "ru", "jpn": "ja", "zho": "zh",
	"kor": "ko", "ara": "ar", "hin": "hi", "pol": "pl", "swe": "sv",
	"nor": "no", "dan": "da", "fin": "fi", "tur": "tr", "ell": "el",
	"heb": "he", "ces": "cs", "hun": "hu", "ron": "ro", "tha": "th",
	"vie": "vi", "ind": "id", "msa": "ms", "ukr": "uk", "cat": "ca",
	"hrv": "hr", "slk": "sk", "bul": "bg", "lit": "lt", "lav": "lv",
	"est": "et", "slv": "sl", "srp": "sr", "fas": "fa", "ben": "bn",
	"lat": "la", "cym": "cy", "gle": "ga", "eus": "eu", "glg": "gl",
	"isl": "is", "mkd": "mk", "bos": "bs", "sqi": "sq", "hye": "hy",
	"kat": "ka", "kaz": "kk", "uzb": "uz", "azj": "az", "mon": "mn",
	// Alternative ISO 639-2/B codes (bibliographic)
	"ger": "de", "fre": "fr", "dut": "nl", "chi": "zh", "cze": "cs",
	"gre": "el", "per": "fa", "rum": "ro", "slo": "sk", "alb": "sq",
	"arm": "hy", "baq": "eu", "geo": "ka", "ice": "is", "mac": "mk",
	"may": "ms", "wel": "cy",
}

// languageNameToCode maps common language names to ISO 639-1 codes.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var languageNameToCode = map[string]string{
	"english": "en", "spanish": "es", "french": "fr", "german": "de",
	"italian": "it", "portuguese": "pt", "dutch": "nl", "russian": "ru",
	"japanese": "ja", "chinese": "zh", "korean": "ko", "arabic": "ar",
	"hindi": "hi", "polish": "pl", "swedish": "sv", "norwegian": "no",
	"danish": "da", "finnish": "fi", "turkish": "tr", "greek": "el",
	"hebrew": "he", "czech": "cs", "hungarian": "hu", "romanian": "ro",
	"ukrainian": "uk", "catalan": "ca", "croatian": "hr", "slovak": "sk",
	"bulgarian": "bg", "lithuanian": "lt", "latvian": "lv", "estonian": "et",
	"slovenian": "sl", "serbian": "sr", "persian": "fa", "latin": "la",
	"welsh": "cy", "irish": "ga", "basque": "eu", "galician": "gl",
	"icelandic": "is", "macedonian": "mk", "bosnian": "bs", "albanian": "sq",
	"armenian": "hy", "georgian": "ka", "mandarin": "zh",
}

// validISO639_1 contains all valid ISO 639-1 codes for validation.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var validISO639_1 = map[string]bool{
	"aa": true, "ab": true, "ae": true, "af": true, "ak": true, "am": true,
	"an": true, "ar": true, "as": true, "av": true, "ay": true, "az": true,
	"ba": true, "be": true, "bg": true, "bh": true, "bi": true, "bm": true,
	"bn": true, "bo": true, "br": true, "bs": true, "ca": true, "ce": true,
	"ch": true, "co": true, "cr": true, "cs": true, "cu": true, "cv": true,
	"cy": true, "da": true, "de": true, "dv": true, "dz": true, "ee": true,
	"el": true, "en": true, "eo": true, "es": true, "et": true, "eu": true,
	"fa": true, "ff": true, "fi": true, "fj": true, "fo": true, "fr": true,
	"fy": true, "ga": true, "gd": true, "gl": true, "gn": true, "gu": true,
	"gv": true, "ha": true, "he": true, "hi": true, "ho": true, "hr": true,
	"ht": true, "hu": true, "hy": true, "hz": true, "ia": true, "id": true,
	"ie": true, "ig": true, "ii": true, "ik": true, "io": true, "is": true,
	"it": true, "iu": true, "ja": true, "jv": true, "ka": true, "kg": true,
	"ki": true, "kj": true, "kk": true, "kl": true, "km": true, "kn": true,
	"ko": true, "kr": true, "ks": true, "ku": true, "kv": true, "kw": true,
	"ky": true, "la": true, "lb": true, "lg": true, "li": true, "ln": true,
	"lo": true, "lt": true, "lu": true, "lv": true, "mg": true, "mh": true,
	"mi": true, "mk": true, "ml": true, "mn": true, "mr": true, "ms": true,
	"mt": true, "my": true, "na": true, "nb": true, "nd": true, "ne": true,
	"ng": true, "nl": true, "nn": true, "no": true, "nr": true, "nv": true,
	"ny": true, "oc": true, "oj": true, "om": true, "or": true, "os": true,
	"pa": true, "pi": true, "pl": true, "ps": true, "pt": true, "qu": true,
	"rm": true, "rn": true, "ro": true, "ru": true, "rw": true, "sa": true,
	"sc": true, "sd": true, "se": true, "sg": true, "si": true, "sk": true,
	"sl": true, "sm": true, "sn": true, "so": true, "sq": true, "sr": true,
	"ss": true, "st": true, "su": true, "sv": true, "sw": true, "ta": true,
	"te": true, "tg": true, "th": true, "ti": true, "tk": true, "tl": true,
	"tn": true, "to": true, "tr": true, "ts": true, "tt": true, "tw": true,
	"ty": true, "ug": true, "uk": true, "ur": true, "uz": true, "ve": true,
	"vi": true, "vo": true, "wa": true, "wo": true, "xh": true, "yi": true,
	"yo": true, "za": true, "zh": true, "zu": true,
}

// LanguageCode converts various language representations to ISO 639-1 codes.
// It handles:
//   - ISO 639-1 codes: "en" -> "en"
//   - ISO 639-2 codes: "eng" -> "en"
//   - Locale codes: "en-US", "en_GB" -> "en"
//   - Language names: "English", "LATIN" -> "en", "la"
//
// Returns empty string for unrecognized values; callers keep the raw input
// in that case rather than discard what the admin typed.
func LanguageCode(raw string) string {
	s := strings.ToLower(strings.TrimSpace(stripNulls(raw)))
	if s == "" {
		return ""
	}

	// Locale codes: split on common separators and use the first part.
	if idx := strings.IndexAny(s, "-_"); idx > 0 {
		s = s[:idx]
	}

	if len(s) == 2 && validISO639_1[s] {
		return s
	}

	if len(s) == 3 {
		if code, ok := iso639_2to1[s]; ok {
			return code
		}
	}

	if code, ok := languageNameToCode[s]; ok {
		return code
	}

	return ""
}

// Language canonicalizes a language value to an ISO 639-1 code, falling
// back to the trimmed input when the value is not recognized.
func Language(raw string) string {
	if code := LanguageCode(raw); code != "" {
		return code
	}
	return strings.TrimSpace(stripNulls(raw))
}

// Tags lowercases, trims, and deduplicates a tag list, dropping empties.
// Book tags and permission tag grants both pass through here, so grants
// match regardless of how either side was typed.
func Tags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		tag := strings.ToLower(strings.TrimSpace(stripNulls(t)))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// stripNulls removes null bytes, which break JSON storage and comparisons.
func stripNulls(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
