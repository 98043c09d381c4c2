package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/naver-ai-trip/agent-trip/app/observability/metrics"
	generativeAI "github.com/naver-ai-trip/agent-trip/internal/api/generative_ai"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// MaxPlaceBatch bounds how many places go into one translation request.
const MaxPlaceBatch = 15

type placeFields struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Address  string `json:"address"`
}

type placeBatch struct {
	Items []placeFields `json:"items"`
}

// PlaceTranslator localizes the corpus-language fields of places.
type PlaceTranslator struct {
	llm            generativeAI.LLMClient
	corpusLanguage string
	logger         *slog.Logger
}

func NewPlaceTranslator(llm generativeAI.LLMClient, corpusLanguage string, logger *slog.Logger) *PlaceTranslator {
	return &PlaceTranslator{llm: llm, corpusLanguage: corpusLanguage, logger: logger}
}

// TranslatePlaces returns a copy of places with name, category and address
// translated to targetLang. Nothing is translated when targetLang is the corpus
// language. A batch that fails keeps its original values.
func (t *PlaceTranslator) TranslatePlaces(ctx context.Context, places []types.Place, targetLang string) []types.Place {
	out := make([]types.Place, len(places))
	copy(out, places)
	if len(places) == 0 || targetLang == "" || targetLang == t.corpusLanguage {
		return out
	}

	ctx, span := otel.Tracer("Translator").Start(ctx, "TranslatePlaces", trace.WithAttributes(
		attribute.String("target_lang", targetLang),
		attribute.Int("places.count", len(places)),
	))
	defer span.End()

	l := t.logger.With(slog.String("method", "TranslatePlaces"))
	failed := 0
	for start := 0; start < len(out); start += MaxPlaceBatch {
		end := min(start+MaxPlaceBatch, len(out))
		if err := t.translateBatch(ctx, out[start:end], targetLang); err != nil {
			failed++
			metrics.ProviderFailure(ctx, "llm", "translate_places")
			l.WarnContext(ctx, "Place batch translation failed, keeping originals",
				slog.Int("batch_start", start), slog.Int("batch_size", end-start), slog.Any("error", err))
		}
	}
	span.SetAttributes(attribute.Int("batches.failed", failed))
	return out
}

func (t *PlaceTranslator) translateBatch(ctx context.Context, batch []types.Place, targetLang string) error {
	in := placeBatch{Items: make([]placeFields, len(batch))}
	for i, p := range batch {
		in.Items[i] = placeFields{Index: i, Name: p.Name, Category: p.Category, Address: p.Address}
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	system := fmt.Sprintf("Translate the name, category and address of every item to %s. "+
		"Keep the index of each item. Respond with JSON of the same shape: {\"items\":[{\"index\":0,\"name\":\"\",\"category\":\"\",\"address\":\"\"}]}.",
		LanguageName(targetLang))
	raw, err := t.llm.GenerateJSON(ctx, system, string(payload))
	if err != nil {
		return err
	}

	var res placeBatch
	if err := generativeAI.DecodeJSON(raw, &res); err != nil {
		return err
	}
	if len(res.Items) != len(batch) {
		return fmt.Errorf("expected %d translated items, got %d", len(batch), len(res.Items))
	}
	for _, item := range res.Items {
		if item.Index < 0 || item.Index >= len(batch) {
			return fmt.Errorf("translated item index %d out of range", item.Index)
		}
	}
	for _, item := range res.Items {
		p := &batch[item.Index]
		if item.Name != "" {
			p.Name = item.Name
		}
		if item.Category != "" {
			p.Category = item.Category
		}
		if item.Address != "" {
			p.Address = item.Address
		}
	}
	return nil
}
