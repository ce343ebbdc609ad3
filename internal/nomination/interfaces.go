package nomination

import (
	"context"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher retrieves a page and returns it as a parsed document.
// A non-success response is reported as a *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Store persists summaries and detail rows. Every write is idempotent.
type Store interface {
	Initialize(ctx context.Context) error
	SaveSummary(ctx context.Context, summary Summary) (bool, error)
	PendingSummaries(ctx context.Context) ([]Summary, error)
	SaveDetail(ctx context.Context, nominationID int64, people []Person) (int, error)
	MarkFetched(ctx context.Context, nominationID int64) error
	AllRecords(ctx context.Context) ([]Record, error)
	Close() error
}

// BlobStore writes an artifact to a destination and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
