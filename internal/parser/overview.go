// Package parser turns archive pages into nomination records. The listing
// parser works on one category/year page; the detail parser works on one
// nomination page.
package parser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
)

// NomineeHeader is the text of the first cell that marks the nomination table.
const NomineeHeader = "Nominee(s)"

// Listing is one nomination row from a listing page.
type Listing struct {
	ID         int64
	Nominees   []nomination.PersonRef
	Nominators []nomination.PersonRef
}

// OverviewResult carries the listings found on a page plus the rows that
// were rejected.
type OverviewResult struct {
	Listings []Listing
	Skipped  []*nomination.ParseError
	// Tables is the number of tables inspected; NominationTables the number
	// whose header matched.
	Tables           int
	NominationTables int
}

// OverviewParser extracts listings from category/year pages.
type OverviewParser struct {
	logger *zap.Logger
}

// NewOverviewParser returns a parser that logs rejected rows to logger.
func NewOverviewParser(logger *zap.Logger) *OverviewParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverviewParser{logger: logger}
}

// Parse walks every table in doc. Only tables whose first row starts with the
// NomineeHeader cell are read; every later row with at least one nominee or
// nominator becomes a Listing. Rows with a malformed id are skipped.
func (p *OverviewParser) Parse(doc *goquery.Document) OverviewResult {
	var result OverviewResult

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		result.Tables++
		rows := tableRows(table)
		if rows.Length() == 0 || !isNominationTable(rows.First()) {
			return
		}
		result.NominationTables++

		rows.Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			listing, ok, err := parseListingRow(row)
			if err != nil {
				err.Context = fmt.Sprintf("listing row %d", i)
				p.logger.Warn("skipping malformed listing row",
					zap.Int("row", i),
					zap.String("reason", err.Reason),
				)
				result.Skipped = append(result.Skipped, err)
				return
			}
			if ok {
				result.Listings = append(result.Listings, listing)
			}
		})
	})

	if result.Tables > 0 && result.NominationTables == 0 {
		p.logger.Debug("no table matched the nominee header",
			zap.Int("tables", result.Tables),
			zap.String("header", NomineeHeader),
		)
	}
	return result
}

func tableRows(table *goquery.Selection) *goquery.Selection {
	if body := table.ChildrenFiltered("tbody"); body.Length() > 0 {
		return body.First().Find("tr")
	}
	return table.Find("tr")
}

func isNominationTable(header *goquery.Selection) bool {
	first := header.Find("td").First()
	return first.Length() > 0 && strings.TrimSpace(first.Text()) == NomineeHeader
}

// parseListingRow returns ok=false for spacer rows without people.
func parseListingRow(row *goquery.Selection) (Listing, bool, *nomination.ParseError) {
	var listing Listing
	cells := row.Find("td")

	nominees, err := personRefs(cells.Eq(0))
	if err != nil {
		return Listing{}, false, err
	}
	nominators, err := personRefs(cells.Eq(1))
	if err != nil {
		return Listing{}, false, err
	}
	if len(nominees) == 0 && len(nominators) == 0 {
		return Listing{}, false, nil
	}
	listing.Nominees = nominees
	listing.Nominators = nominators

	link := cells.Eq(2).Find("a").First()
	if link.Length() == 0 {
		return Listing{}, false, &nomination.ParseError{Reason: "nomination link missing"}
	}
	href, _ := link.Attr("href")
	id, err := idFromHref(href)
	if err != nil {
		return Listing{}, false, err
	}
	listing.ID = id
	return listing, true, nil
}

func personRefs(cell *goquery.Selection) ([]nomination.PersonRef, *nomination.ParseError) {
	if cell.Length() == 0 || strings.TrimSpace(cell.Text()) == "" {
		return nil, nil
	}
	var (
		refs []nomination.PersonRef
		perr *nomination.ParseError
	)
	cell.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		id, err := idFromHref(href)
		if err != nil {
			perr = err
			return false
		}
		refs = append(refs, nomination.PersonRef{ID: id, Name: strings.TrimSpace(link.Text())})
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return refs, nil
}

// idFromHref reads the integer "id" query parameter of an archive link.
func idFromHref(href string) (int64, *nomination.ParseError) {
	if strings.TrimSpace(href) == "" {
		return 0, &nomination.ParseError{Reason: "link has no href"}
	}
	u, err := url.Parse(href)
	if err != nil {
		return 0, &nomination.ParseError{Reason: fmt.Sprintf("invalid href %q: %v", href, err)}
	}
	raw := u.Query().Get("id")
	if raw == "" {
		return 0, &nomination.ParseError{Reason: fmt.Sprintf("href %q has no id parameter", href)}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &nomination.ParseError{Reason: fmt.Sprintf("href %q has non-numeric id %q", href, raw)}
	}
	return id, nil
}
