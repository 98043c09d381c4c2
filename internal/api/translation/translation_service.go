package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/app/observability/metrics"
	generativeAI "github.com/naver-ai-trip/agent-trip/internal/api/generative_ai"
)

// Translator detects and translates free text.
type Translator interface {
	DetectLanguage(text string) string
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

type LLMTranslator struct {
	llm    generativeAI.LLMClient
	cache  *cache.Cache
	logger *slog.Logger
}

var _ Translator = (*LLMTranslator)(nil)

func NewLLMTranslator(llm generativeAI.LLMClient, logger *slog.Logger) *LLMTranslator {
	return &LLMTranslator{
		llm:    llm,
		cache:  cache.New(24*time.Hour, time.Hour),
		logger: logger,
	}
}

func (t *LLMTranslator) DetectLanguage(text string) string {
	return DetectScript(text)
}

// Translate returns text unchanged when it is empty or already in targetLang.
func (t *LLMTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" || targetLang == "" || t.DetectLanguage(text) == targetLang {
		return text, nil
	}

	ctx, span := otel.Tracer("Translator").Start(ctx, "Translate", trace.WithAttributes(
		attribute.String("target_lang", targetLang),
		attribute.Int("text.length", len(text)),
	))
	defer span.End()

	key := targetLang + "|" + text
	if cached, found := t.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.(string), nil
	}

	system := fmt.Sprintf("You are a professional translator. Translate the user's text to %s. "+
		"Return only the translation, without quotes or explanations. Keep proper nouns recognisable.",
		LanguageName(targetLang))
	out, err := t.llm.GenerateText(ctx, system, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "translation failed")
		metrics.ProviderFailure(ctx, "llm", "translate")
		return text, fmt.Errorf("failed to translate to %s: %w", targetLang, err)
	}
	out = strings.TrimSpace(out)
	t.cache.Set(key, out, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "translated")
	return out, nil
}

// TranslateOrOriginal translates text and falls back to the input on failure.
func TranslateOrOriginal(ctx context.Context, tr Translator, logger *slog.Logger, text, targetLang string) string {
	if tr == nil {
		return text
	}
	out, err := tr.Translate(ctx, text, targetLang)
	if err != nil {
		logger.WarnContext(ctx, "Translation failed, keeping original text",
			slog.String("target_lang", targetLang), slog.Any("error", err))
		return text
	}
	return out
}

// TranslateAll applies TranslateOrOriginal to every string.
func TranslateAll(ctx context.Context, tr Translator, logger *slog.Logger, texts []string, targetLang string) []string {
	out := make([]string, len(texts))
	for i, s := range texts {
		out[i] = TranslateOrOriginal(ctx, tr, logger, s, targetLang)
	}
	return out
}
