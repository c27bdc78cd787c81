package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage"
)

// minCorrectable is the shortest text worth sending for correction.
const minCorrectable = 20

// Stages implements the text stages with a single Completer.
type Stages struct {
	llm Completer

	// translateWorkers bounds concurrent role/relationship translations
	// when characters are requested in Telugu.
	translateWorkers int
}

var (
	_ stage.Corrector          = (*Stages)(nil)
	_ stage.Translator         = (*Stages)(nil)
	_ stage.Summarizer         = (*Stages)(nil)
	_ stage.CharacterExtractor = (*Stages)(nil)
)

func NewStages(llm Completer) *Stages {
	return &Stages{llm: llm, translateWorkers: 4}
}

// Correct repairs OCR errors. Short or blank text is returned unchanged
// and an empty reply keeps the input.
func (s *Stages) Correct(ctx context.Context, text string) (string, error) {
	if len(strings.TrimSpace(text)) < minCorrectable {
		return text, nil
	}

	req := Request{
		System:      correctionPrompt,
		User:        "Fix OCR errors in this text:\n\n" + text,
		Temperature: 0.1,
		MaxTokens:   4000,
	}
	if IsGarbled(text) {
		req.System = reconstructionPrompt
		req.Temperature = 0.2
	}

	out, err := s.llm.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if out == "" {
		return text, nil
	}
	return out, nil
}

// Translate renders English text in Telugu. The result is NFC normalized
// so identical translations compare equal byte for byte.
func (s *Stages) Translate(ctx context.Context, english string) (string, error) {
	if strings.TrimSpace(english) == "" {
		return "", nil
	}
	out, err := s.llm.Complete(ctx, Request{
		System:      translationPrompt,
		User:        english,
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil {
		return "", err
	}
	return norm.NFC.String(out), nil
}

// Summarize always summarizes in English first; Telugu summaries are a
// translation of that result.
func (s *Stages) Summarize(ctx context.Context, text string, kind stage.SummaryType, lang stage.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	system := shortSummaryPrompt
	if kind == stage.SummaryMedium {
		system = mediumSummaryPrompt
	}

	summary, err := s.llm.Complete(ctx, Request{
		System:      system,
		User:        "Summarize the following text:\n\n" + text,
		Temperature: 0.5,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", err
	}

	if lang == stage.Telugu {
		return s.Translate(ctx, summary)
	}
	return summary, nil
}

// ExtractCharacters asks for a JSON character list. A reply that cannot be
// parsed yields an empty list rather than an error. For Telugu, role and
// relationships are translated and names stay as written.
func (s *Stages) ExtractCharacters(ctx context.Context, text string, lang stage.Language) ([]stage.Character, error) {
	if strings.TrimSpace(text) == "" {
		return []stage.Character{}, nil
	}

	out, err := s.llm.Complete(ctx, Request{
		System:      charactersPrompt,
		User:        "Extract characters from this text:\n\n" + text,
		Temperature: 0.3,
		MaxTokens:   2000,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	chars, err := ParseCharacters(out)
	if err != nil {
		logger.Warn("unparsable character reply", map[string]any{
			"error": err.Error(),
			"reply": truncate(out, 200),
		})
		return []stage.Character{}, nil
	}

	if lang == stage.Telugu {
		if err := s.translateCharacters(ctx, chars); err != nil {
			return nil, err
		}
	}
	return chars, nil
}

func (s *Stages) translateCharacters(ctx context.Context, chars []stage.Character) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.translateWorkers)

	for i := range chars {
		c := &chars[i]
		g.Go(func() error {
			role, err := s.Translate(ctx, c.Role)
			if err != nil {
				return fmt.Errorf("translate role of %s: %w", c.Name, err)
			}
			c.Role = role
			return nil
		})
		for j := range c.Relationships {
			g.Go(func() error {
				rel, err := s.Translate(ctx, c.Relationships[j])
				if err != nil {
					return fmt.Errorf("translate relationship of %s: %w", c.Name, err)
				}
				c.Relationships[j] = rel
				return nil
			})
		}
	}
	return g.Wait()
}

// ParseCharacters accepts either a bare JSON array or an object with a
// "characters" array. Any other JSON object yields an empty list.
func ParseCharacters(reply string) ([]stage.Character, error) {
	reply = stripCodeFence(reply)

	var chars []stage.Character
	if strings.HasPrefix(reply, "[") {
		if err := json.Unmarshal([]byte(reply), &chars); err != nil {
			return nil, err
		}
	} else {
		var wrapped struct {
			Characters []stage.Character `json:"characters"`
		}
		if err := json.Unmarshal([]byte(reply), &wrapped); err != nil {
			return nil, err
		}
		chars = wrapped.Characters
	}

	if chars == nil {
		chars = []stage.Character{}
	}
	for i := range chars {
		if chars[i].Relationships == nil {
			chars[i].Relationships = []string{}
		}
	}
	return chars, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// IsGarbled reports whether OCR output looks too damaged for light
// correction: very short words, few letters, or many stray single
// characters. Text under 50 characters or 5 words is never garbled.
func IsGarbled(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < 50 {
		return false
	}
	words := strings.Fields(trimmed)
	if len(words) < 5 {
		return false
	}

	var wordRunes int
	for _, w := range words {
		wordRunes += utf8.RuneCountInString(w)
	}
	if float64(wordRunes)/float64(len(words)) < 2.5 {
		return true
	}

	var alpha, nonSpace int
	for _, r := range text {
		if r == ' ' {
			continue
		}
		nonSpace++
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if nonSpace > 0 && float64(alpha)/float64(nonSpace) < 0.6 {
		return true
	}

	var singles int
	for _, w := range words {
		if utf8.RuneCountInString(w) == 1 {
			lw := strings.ToLower(w)
			if lw != "a" && lw != "i" {
				singles++
			}
		}
	}
	return float64(singles)/float64(len(words)) > 0.3
}
