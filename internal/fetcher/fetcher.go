// Package fetcher downloads excursion listing pages and turns them into records.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tripfriend_bot/internal/extract"
	"tripfriend_bot/internal/model"
)

// BrowserUserAgent is sent with every request; the listing site rejects
// clients that do not look like a browser.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 5 * 1024 * 1024
)

const tracerName = "tripfriend_bot/internal/fetcher"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError reports a failed listings download.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads listing pages.
type Fetcher struct {
	client HTTPClient
	tracer trace.Tracer
	log    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTracerProvider records spans with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Fetcher) { f.tracer = tp.Tracer(tracerName) }
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient, log *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: client,
		tracer: otel.Tracer(tracerName),
		log:    log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewHTTPClient returns a client whose transport passes the site's
// anti-bot checks. A zero timeout means no timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: cloudflarebp.AddCloudFlareByPass(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// BuildURL assembles the listings query for params.
func BuildURL(p model.SearchParams) string {
	var b strings.Builder
	b.WriteString(p.CityURL)
	b.WriteString(sortFragment(p.Sort))
	b.WriteString("&end_date=")
	b.WriteString(p.EndDate.Format(dateLayout))
	b.WriteString("&start_date=")
	b.WriteString(p.StartDate.Format(dateLayout))
	b.WriteString(typeFragment(p.Type))
	return b.String()
}

func sortFragment(m model.SortMode) string {
	if m == model.SortRating {
		return "?sorting=rating"
	}
	return "?"
}

func typeFragment(t model.TypeFilter) string {
	switch t {
	case model.TypeGroup:
		return "&type=group,ticket"
	case model.TypePrivate:
		return "&type=private"
	default:
		return ""
	}
}

// Fetch downloads the raw listings markup for params.
func (f *Fetcher) Fetch(ctx context.Context, p model.SearchParams) (string, error) {
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("invalid search params: %w", err)
	}
	url := BuildURL(p)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}

// Search fetches the listings page for params and extracts its excursions.
// Malformed listings are logged and skipped.
func (f *Fetcher) Search(ctx context.Context, p model.SearchParams) ([]model.Excursion, error) {
	ctx, span := f.tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("city_url", p.CityURL),
		attribute.String("type", string(p.Type)),
	)

	markup, err := f.Fetch(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch listings")
		return nil, err
	}

	res, err := extract.ParseString(markup)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extract listings")
		return nil, fmt.Errorf("extract listings: %w", err)
	}
	for _, m := range res.Malformed {
		f.log.Warn("skip malformed listing", "city_url", p.CityURL, "error", m)
	}
	span.SetAttributes(attribute.Int("excursions", len(res.Excursions)))

	f.log.Debug("fetched listings", "city_url", p.CityURL, "count", len(res.Excursions), "skipped", len(res.Malformed))
	return res.Excursions, nil
}
