package pipeline

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
)

// DefaultBaseURL is the root of the public nomination archive.
const DefaultBaseURL = "https://www.nobelprize.org/nomination/archive/"

// URLs builds archive page addresses from a base URL.
type URLs struct {
	base string
}

// NewURLs validates base and returns a URL builder. An empty base selects
// DefaultBaseURL.
func NewURLs(base string) (URLs, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return URLs{}, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return URLs{}, fmt.Errorf("base url %q must be http or https", base)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return URLs{base: base}, nil
}

// Listing is the overview page for one category and year.
func (u URLs) Listing(category nomination.Category, year int) string {
	return fmt.Sprintf("%slist.php?prize=%d&year=%d", u.base, int(category), year)
}

// Detail is the page for one nomination.
func (u URLs) Detail(id int64) string {
	return fmt.Sprintf("%sshow.php?id=%d", u.base, id)
}
