// Package export flattens stored nominations into the analysis CSV.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/JakeFAU/nomination-archive-crawler/internal/hash/sha256"
	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
)

// ContentType is the media type recorded for uploaded exports.
const ContentType = "text/csv; charset=utf-8"

// Header is the exact column order of the export file.
var Header = []string{
	"url", "id", "prize", "year", "role",
	"name", "gender", "year_birth", "year_death", "profession",
	"university", "city", "state", "country", "motivation", "comments",
}

// Row is one (nomination, person) line of the export. Field order matches Header.
type Row struct {
	URL        string `csv:"url"`
	ID         int64  `csv:"id"`
	Prize      string `csv:"prize"`
	Year       int    `csv:"year"`
	Role       string `csv:"role"`
	Name       string `csv:"name"`
	Gender     string `csv:"gender"`
	YearBirth  string `csv:"year_birth"`
	YearDeath  string `csv:"year_death"`
	Profession string `csv:"profession"`
	University string `csv:"university"`
	City       string `csv:"city"`
	State      string `csv:"state"`
	Country    string `csv:"country"`
	Motivation string `csv:"motivation"`
	Comments   string `csv:"comments"`
}

// Rows flattens records: every nominee of a nomination, then every
// nominator. Absent attributes become empty strings.
func Rows(records []nomination.Record, detailURL func(id int64) string) []Row {
	var rows []Row
	for _, record := range records {
		prefix := Row{
			URL:   detailURL(record.Summary.ID),
			ID:    record.Summary.ID,
			Prize: record.Summary.Category.DisplayName(),
			Year:  record.Summary.Year,
		}
		for _, group := range [][]nomination.Person{record.Nominees, record.Nominators} {
			for _, p := range group {
				rows = append(rows, personRow(prefix, p))
			}
		}
	}
	return rows
}

func personRow(prefix Row, p nomination.Person) Row {
	a := p.Attributes
	row := prefix
	row.Role = p.Role
	row.Name = a.Name.String
	row.Gender = a.Gender.String
	row.YearBirth = a.YearBirth.String
	row.YearDeath = a.YearDeath.String
	row.Profession = a.Profession.String
	row.University = a.University.String
	row.City = a.City.String
	row.State = a.State.String
	row.Country = a.Country.String
	row.Motivation = a.Motivation.String
	row.Comments = a.Comments.String
	return row
}

// Write encodes rows with the header line. An empty slice still yields the header.
func Write(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return nil
}

// Read decodes a file produced by Write.
func Read(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	return rows, nil
}

// Exporter writes the CSV to a destination resolved at export time.
type Exporter struct {
	resolve   Resolver
	detailURL func(int64) string
	hasher    *sha256.Hasher
	logger    *zap.Logger
}

// NewExporter builds an Exporter. detailURL produces the url column.
func NewExporter(resolve Resolver, detailURL func(int64) string, logger *zap.Logger) *Exporter {
	if resolve == nil {
		resolve = ResolveDestination
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{resolve: resolve, detailURL: detailURL, hasher: sha256.New(), logger: logger}
}

// Export writes records to dest and returns the written URI and row count.
// Any failure is a *nomination.ExportError.
func (e *Exporter) Export(ctx context.Context, records []nomination.Record, dest string) (string, int, error) {
	rows := Rows(records, e.detailURL)

	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		return "", 0, &nomination.ExportError{Destination: dest, Err: err}
	}

	target, err := e.resolve(ctx, dest)
	if err != nil {
		return "", 0, &nomination.ExportError{Destination: dest, Err: err}
	}
	defer func() {
		if cerr := target.Close(); cerr != nil {
			e.logger.Warn("failed to close export destination", zap.String("destination", dest), zap.Error(cerr))
		}
	}()

	digest := e.hasher.Hash(buf.Bytes())
	uri, err := target.Store.PutObject(ctx, target.Path, ContentType, &buf)
	if err != nil {
		return "", 0, &nomination.ExportError{Destination: dest, Err: err}
	}
	e.logger.Info("export written",
		zap.String("uri", uri),
		zap.Int("rows", len(rows)),
		zap.Int("nominations", len(records)),
		zap.String("sha256", digest),
	)
	return uri, len(rows), nil
}
