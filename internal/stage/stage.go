// Package stage defines the capabilities the pipeline consumes. Each
// adapter exposes a single typed operation and is free to run locally or
// call a remote API behind it.
package stage

import (
	"context"
	"fmt"
)

// Stage names used in cache and dedup keys.
const (
	NameOCR        = "ocr"
	NameCorrect    = "correct"
	NameTranslate  = "translate"
	NameSummary    = "summary"
	NameCharacters = "characters"
	NameTTS        = "tts"
)

// OCR extracts text from a single page image.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Corrector repairs OCR mistakes without rewriting the text.
type Corrector interface {
	Correct(ctx context.Context, text string) (string, error)
}

// Translator turns English text into Telugu. Proper nouns must be left
// untranslated in their original spelling.
type Translator interface {
	Translate(ctx context.Context, english string) (string, error)
}

// Summarizer condenses the full document text.
type Summarizer interface {
	Summarize(ctx context.Context, text string, kind SummaryType, lang Language) (string, error)
}

// CharacterExtractor lists the named characters in the full document text.
// The text carries "[PAGE n]" markers so first appearances can be reported.
type CharacterExtractor interface {
	ExtractCharacters(ctx context.Context, text string, lang Language) ([]Character, error)
}

// Synthesizer renders text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Character is one entry of the character table.
type Character struct {
	Name                string   `json:"name"`
	Role                string   `json:"role"`
	Relationships       []string `json:"relationships"`
	FirstAppearancePage int      `json:"first_appearance_page"`
}

// Audio is synthesized speech held in memory only.
type Audio struct {
	Data        []byte
	ContentType string
}

type SummaryType string

const (
	SummaryShort  SummaryType = "short"  // 5-7 bullet points
	SummaryMedium SummaryType = "medium" // 2-3 paragraphs
)

// ParseSummaryType defaults to short when s is empty.
func ParseSummaryType(s string) (SummaryType, error) {
	switch SummaryType(s) {
	case "":
		return SummaryShort, nil
	case SummaryShort, SummaryMedium:
		return SummaryType(s), nil
	}
	return "", fmt.Errorf("unknown summary type %q (want short or medium)", s)
}

type Language string

const (
	English Language = "english"
	Telugu  Language = "telugu"
)

// ParseLanguage defaults to English when s is empty.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case "":
		return English, nil
	case English, Telugu:
		return Language(s), nil
	}
	return "", fmt.Errorf("unknown language %q (want english or telugu)", s)
}
