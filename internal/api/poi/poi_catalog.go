package poi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	generativeAI "github.com/naver-ai-trip/agent-trip/internal/api/generative_ai"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

const (
	maxCatalogPageBytes = 2 << 20
	maxCatalogTextRunes = 12000
)

// CatalogScraper lists a region's attractions from a public tourism catalog page.
// The page text is handed to the model, which returns the named entries.
type CatalogScraper struct {
	httpClient *http.Client
	baseURL    string
	llm        generativeAI.LLMClient
	cache      *cache.Cache
	logger     *slog.Logger
}

var _ RegionCatalog = (*CatalogScraper)(nil)

// NewCatalogScraper builds a scraper for baseURL; the region is appended to it
// query-escaped.
func NewCatalogScraper(baseURL string, llm generativeAI.LLMClient, logger *slog.Logger) *CatalogScraper {
	return &CatalogScraper{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
		llm:        llm,
		cache:      cache.New(6*time.Hour, 30*time.Minute),
		logger:     logger,
	}
}

type catalogReply struct {
	Places []types.CatalogEntry `json:"places"`
}

func (c *CatalogScraper) CatalogForRegion(ctx context.Context, region string, limit int) ([]types.CatalogEntry, error) {
	ctx, span := otel.Tracer("PlacesCatalog").Start(ctx, "CatalogForRegion", trace.WithAttributes(
		attribute.String("region", region),
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "CatalogForRegion"), slog.String("region", region))

	cacheKey := fmt.Sprintf("%s|%d", strings.ToLower(region), limit)
	if cached, found := c.cache.Get(cacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.([]types.CatalogEntry), nil
	}

	pageText, err := c.fetchPageText(ctx, region)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch catalog page")
		return nil, err
	}

	response, err := c.llm.GenerateJSON(ctx, catalogSystemPrompt, getCatalogPrompt(region, pageText, limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Catalog extraction failed")
		return nil, fmt.Errorf("catalog extraction failed: %w", err)
	}

	var reply catalogReply
	if err := generativeAI.DecodeJSON(response, &reply); err != nil {
		// An unreadable reply is an empty catalog, not a failed turn.
		l.WarnContext(ctx, "Could not parse catalog reply", slog.Any("error", err))
		span.SetStatus(codes.Ok, "Catalog reply unreadable")
		return nil, nil
	}

	entries := make([]types.CatalogEntry, 0, len(reply.Places))
	for _, e := range reply.Places {
		if strings.TrimSpace(e.Name) == "" && strings.TrimSpace(e.NativeName) == "" {
			continue
		}
		entries = append(entries, e)
	}
	entries = entries[:min(len(entries), limit)]

	c.cache.Set(cacheKey, entries, cache.DefaultExpiration)
	l.DebugContext(ctx, "Catalog extracted", slog.Int("entries", len(entries)))
	span.SetAttributes(attribute.Int("entries", len(entries)))
	span.SetStatus(codes.Ok, "Catalog extracted")
	return entries, nil
}

func (c *CatalogScraper) fetchPageText(ctx context.Context, region string) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("catalog base URL is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.QueryEscape(region), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("catalog page returned status %d", resp.StatusCode)
	}
	return extractText(io.LimitReader(resp.Body, maxCatalogPageBytes), maxCatalogTextRunes), nil
}

// extractText returns the visible text of an HTML document, one run per line.
func extractText(r io.Reader, maxRunes int) string {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return clip(b.String(), maxRunes)
		case html.StartTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if t := strings.Join(strings.Fields(string(z.Text())), " "); t != "" {
				b.WriteString(t)
				b.WriteByte('\n')
			}
		}
	}
}

func isHiddenTag(name string) bool {
	return name == "script" || name == "style" || name == "noscript"
}

func clip(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}
