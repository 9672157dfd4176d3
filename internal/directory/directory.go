// Package directory scrapes the site's destinations index into a city table.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"tripfriend_bot/internal/destinations"
	"tripfriend_bot/internal/fetcher"
	"tripfriend_bot/internal/telemetry"
)

// DefaultIndexURL is the page listing every destination.
const DefaultIndexURL = "https://experience.tripster.ru/destinations/"

// LinkSelector matches one destination link on the index page.
const LinkSelector = "a.item-link"

const tracerName = "tripfriend_bot/internal/directory"

var tracer = otel.Tracer(tracerName)

// ErrEmpty is returned when the index page yields no destinations.
var ErrEmpty = errors.New("destinations index has no entries")

// Source returns the markup of the destinations index page.
type Source interface {
	Page(ctx context.Context) (string, error)
}

// HTTPSource downloads the index page with a plain HTTP client.
type HTTPSource struct {
	client *resty.Client
	url    string
}

// NewHTTPSource creates an HTTP source for indexURL.
func NewHTTPSource(indexURL string, timeout time.Duration) *HTTPSource {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", fetcher.BrowserUserAgent)
	client.SetHeader("Accept-Language", "ru-RU,ru;q=0.9")
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	telemetry.InstrumentResty(client, tracerName)
	return &HTTPSource{client: client, url: indexURL}
}

func (s *HTTPSource) Page(ctx context.Context) (string, error) {
	res, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", s.url, err)
	}
	if res.IsError() {
		return "", &fetcher.FetchError{URL: s.url, StatusCode: res.StatusCode()}
	}
	return res.String(), nil
}

// BrowserSource renders the index page in headless Chrome. It is slower than
// HTTPSource but gets through pages that require script execution.
type BrowserSource struct {
	url     string
	timeout time.Duration
}

// NewBrowserSource creates a headless browser source for indexURL.
func NewBrowserSource(indexURL string, timeout time.Duration) *BrowserSource {
	return &BrowserSource{url: indexURL, timeout: timeout}
}

func (s *BrowserSource) Page(ctx context.Context) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(fetcher.BrowserUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		browserCtx, cancel = context.WithTimeout(browserCtx, s.timeout)
		defer cancel()
	}

	var markup string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(s.url),
		chromedp.WaitVisible(LinkSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", s.url, err)
	}
	return markup, nil
}

// Parse extracts city name to URL pairs from the index markup. Relative links
// are resolved against baseURL; names are normalized to lower case.
func Parse(markup, baseURL string) (map[string]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	out := make(map[string]string)
	doc.Find(LinkSelector).Each(func(_ int, s *goquery.Selection) {
		name := destinations.Normalize(s.Text())
		href, ok := s.Attr("href")
		if name == "" || !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		out[name] = base.ResolveReference(ref).String()
	})
	return out, nil
}

// Scrape downloads and parses the index into a table.
func Scrape(ctx context.Context, src Source, baseURL string, log *slog.Logger) (*destinations.Table, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("base_url", baseURL))

	markup, err := src.Page(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load index page")
		return nil, err
	}
	urls, err := Parse(markup, baseURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse index page")
		return nil, err
	}
	if len(urls) == 0 {
		span.SetStatus(codes.Error, "empty index")
		return nil, ErrEmpty
	}
	span.SetAttributes(attribute.Int("destinations", len(urls)))
	log.Info("scraped destinations", "count", len(urls))
	return destinations.New(urls), nil
}
