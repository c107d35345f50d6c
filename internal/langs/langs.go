// Package langs maps language codes to the English names that speech and
// translation engines expect.
package langs

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto asks the transcription engine to detect the source language.
const Auto = "auto"

// Fallback is used when the source is Auto and detection reports nothing.
const Fallback = "en"

var namer = display.English.Languages()

// Name returns the English display name for a code such as "zh" or "pt-BR".
// Unknown codes are returned unchanged.
func Name(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, Auto) {
		return code
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, conf := tag.Base()
	if conf == language.No {
		return code
	}
	if name := namer.Name(base); name != "" {
		return name
	}
	return code
}

// Normalize canonicalizes a code ("EN_us" -> "en-US"). Auto and empty values
// pass through as Auto.
func Normalize(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, Auto) {
		return Auto, true
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return code, false
	}
	return tag.String(), true
}

// IsAuto reports whether code requests language detection.
func IsAuto(code string) bool {
	code = strings.TrimSpace(code)
	return code == "" || strings.EqualFold(code, Auto)
}

// whisperCodes are the languages Whisper-family engines report.
var whisperCodes = []string{
	"af", "ar", "hy", "az", "be", "bs", "bg", "ca", "zh", "hr", "cs", "da", "nl",
	"en", "et", "fi", "fr", "gl", "de", "el", "he", "hi", "hu", "is", "id", "it",
	"ja", "kn", "kk", "ko", "lv", "lt", "mk", "ms", "mr", "mi", "ne", "no", "fa",
	"pl", "pt", "ro", "ru", "sr", "sk", "sl", "es", "sw", "sv", "tl", "ta", "th",
	"tr", "uk", "ur", "vi", "cy",
}

var byName = func() map[string]string {
	m := make(map[string]string, len(whisperCodes))
	for _, c := range whisperCodes {
		m[strings.ToLower(Name(c))] = c
	}
	return m
}()

// FromName maps an engine-reported language ("german", "de") to a code.
// It returns "" when the language is not recognized.
func FromName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if code, ok := byName[name]; ok {
		return code
	}
	if tag, err := language.Parse(name); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	return ""
}
