// Package collyfetcher implements nomination.Fetcher using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
)

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Fetcher retrieves archive pages one at a time with a Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

var _ nomination.Fetcher = (*Fetcher)(nil)

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// page is what the collector callbacks capture for a single visit.
type page struct {
	statusCode int
	body       []byte
	err        error
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch GETs url and parses the body. Any non-success response, transport
// failure, or cancellation is returned as a *nomination.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var result page
	collector := f.buildCollector(ctx)
	f.configureCollectorHooks(collector, &result)

	status, err := f.runCollector(ctx, collector, url, &result)
	if err != nil {
		return nil, &nomination.FetchError{URL: url, StatusCode: status, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(result.body))
	if err != nil {
		return nil, &nomination.FetchError{URL: url, StatusCode: status, Err: fmt.Errorf("parse document: %w", err)}
	}
	return doc, nil
}

func (f *Fetcher) buildCollector(ctx context.Context) *colly.Collector {
	collector := f.baseCollector.Clone()
	// Clones share the visited set; a resumed detail crawl may need a page again.
	collector.AllowURLRevisit = true
	collector.Context = ctx
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	collector.SetRequestTimeout(timeout)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *page) {
	hooks.OnResponse(func(r *colly.Response) {
		result.statusCode = r.StatusCode
		result.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.statusCode = r.StatusCode
		}
		result.err = err
	})
}

// runCollector returns the response status alongside any failure. A
// cancelled visit reports status 0 and leaves result to the collector.
func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, result *page) (int, error) {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return result.statusCode, fmt.Errorf("colly visit failed: %w", err)
		}
		if result.err != nil {
			return result.statusCode, fmt.Errorf("colly response failed: %w", result.err)
		}
		if result.statusCode < http.StatusOK || result.statusCode >= http.StatusMultipleChoices {
			return result.statusCode, fmt.Errorf("unexpected status %d", result.statusCode)
		}
		return result.statusCode, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
