package transcriber

import (
	"strings"

	"wisp/audio"
	"wisp/encoder"
)

// encodeUpload packs 16kHz mono samples as FLAC for the HTTP engines.
func encodeUpload(samples []float32) ([]byte, error) {
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}
	return encoder.Encode(enc, audio.Float32ToInt16(samples))
}

var languageCodes = map[string]string{
	"english": "en", "german": "de", "french": "fr", "spanish": "es",
	"italian": "it", "portuguese": "pt", "dutch": "nl", "russian": "ru",
	"japanese": "ja", "chinese": "zh", "korean": "ko", "turkish": "tr",
	"polish": "pl", "ukrainian": "uk", "arabic": "ar", "hindi": "hi",
}

// isoLanguage maps a language name or code reported by an API to an
// ISO-639-1 code, or "" when unknown.
func isoLanguage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 2 {
		return s
	}
	return languageCodes[s]
}
