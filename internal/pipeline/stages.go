package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage"
)

// TranslateResult pairs a page's English text with its Telugu translation.
type TranslateResult struct {
	Page    int
	English string
	Telugu  string
}

func (o *Orchestrator) Translate(ctx context.Context, id string, page int, regenerate bool) (TranslateResult, error) {
	sess, p, err := o.page(id, page)
	if err != nil {
		return TranslateResult{}, err
	}
	if o.adapters.Translator == nil {
		return TranslateResult{}, ErrStageUnavailable
	}

	key := session.CacheKey{Page: page, Stage: stage.NameTranslate}
	telugu, err := getOrCompute(ctx, o, sess, key, regenerate, func(ctx context.Context) (string, error) {
		return o.adapters.Translator.Translate(ctx, p.Text)
	})
	if err != nil {
		return TranslateResult{}, err
	}
	return TranslateResult{Page: page, English: p.Text, Telugu: telugu}, nil
}

// Summary summarizes the whole document. Each type and language pair is
// cached separately.
func (o *Orchestrator) Summary(ctx context.Context, id string, kind stage.SummaryType, lang stage.Language, regenerate bool) (string, error) {
	sess, err := o.store.Get(id)
	if err != nil {
		return "", err
	}
	if o.adapters.Summarizer == nil {
		return "", ErrStageUnavailable
	}

	text := FullText(sess.Pages)
	if strings.TrimSpace(text) == "" {
		return "", invalid("no text available to summarize")
	}

	key := session.CacheKey{Stage: stage.NameSummary, Variant: string(kind) + ":" + string(lang)}
	return getOrCompute(ctx, o, sess, key, regenerate, func(ctx context.Context) (string, error) {
		return o.adapters.Summarizer.Summarize(ctx, text, kind, lang)
	})
}

// Characters lists the named characters of the whole document.
func (o *Orchestrator) Characters(ctx context.Context, id string, lang stage.Language, regenerate bool) ([]stage.Character, error) {
	sess, err := o.store.Get(id)
	if err != nil {
		return nil, err
	}
	if o.adapters.Characters == nil {
		return nil, ErrStageUnavailable
	}

	text := MarkedText(sess.Pages)
	key := session.CacheKey{Stage: stage.NameCharacters, Variant: string(lang)}
	chars, err := getOrCompute(ctx, o, sess, key, regenerate, func(ctx context.Context) ([]stage.Character, error) {
		chars, err := o.adapters.Characters.ExtractCharacters(ctx, text, lang)
		if chars == nil && err == nil {
			chars = []stage.Character{}
		}
		return chars, err
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(chars), nil
}

// TTS renders one page as English speech. Audio lives only in the
// session cache.
func (o *Orchestrator) TTS(ctx context.Context, id string, page int) (stage.Audio, error) {
	sess, p, err := o.page(id, page)
	if err != nil {
		return stage.Audio{}, err
	}
	if o.adapters.TTS == nil {
		return stage.Audio{}, ErrStageUnavailable
	}

	key := session.CacheKey{Page: page, Stage: stage.NameTTS}
	return getOrCompute(ctx, o, sess, key, false, func(ctx context.Context) (stage.Audio, error) {
		return o.adapters.TTS.Synthesize(ctx, p.Text)
	})
}

func (o *Orchestrator) page(id string, number int) (*session.Session, session.Page, error) {
	if number < 1 {
		return nil, session.Page{}, invalid("page_number must be at least 1")
	}
	sess, err := o.store.Get(id)
	if err != nil {
		return nil, session.Page{}, err
	}
	p, ok := sess.Page(number)
	if !ok {
		return nil, session.Page{}, fmt.Errorf("page %d of %d: %w", number, len(sess.Pages), ErrPageNotFound)
	}
	return sess, p, nil
}

// FullText joins page texts with blank lines in page order.
func FullText(pages []session.Page) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n\n")
}

// MarkedText is FullText with a "[PAGE n]" line before each page.
func MarkedText(pages []session.Page) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[PAGE %d]\n%s", p.Number, p.Text)
	}
	return b.String()
}
