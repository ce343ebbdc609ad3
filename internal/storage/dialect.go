// Package storage holds the schema and query building shared by the
// relational backends. Each backend owns its connection and executes the
// statements built here.
package storage

import (
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
)

// Table names.
const (
	NominationsTable = "nominations"
	PeopleTable      = "nomination_people"
)

// Dialect captures what differs between the supported SQL engines.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	Schema      []string
}

// SQLite is the embedded engine used for file and in-memory stores.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: sq.Question,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS nominations (
	id INTEGER PRIMARY KEY,
	category_id INTEGER NOT NULL,
	year INTEGER NOT NULL,
	nominee_refs TEXT NOT NULL,
	nominator_refs TEXT NOT NULL,
	detail_fetched INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS nominations_pending_idx
	ON nominations (detail_fetched, category_id, year, id)`,
		`CREATE TABLE IF NOT EXISTS nomination_people (
	nomination_id INTEGER NOT NULL REFERENCES nominations (id),
	role TEXT NOT NULL,
	role_kind TEXT NOT NULL,
	slot INTEGER NOT NULL,
	name TEXT,
	gender TEXT,
	year_birth TEXT,
	year_death TEXT,
	profession TEXT,
	university TEXT,
	city TEXT,
	state TEXT,
	country TEXT,
	motivation TEXT,
	comments TEXT,
	UNIQUE (nomination_id, role)
)`,
	},
}

// Postgres is the server engine selected by postgres:// locations.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: sq.Dollar,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS nominations (
	id BIGINT PRIMARY KEY,
	category_id SMALLINT NOT NULL,
	year INTEGER NOT NULL,
	nominee_refs TEXT NOT NULL,
	nominator_refs TEXT NOT NULL,
	detail_fetched BOOLEAN NOT NULL DEFAULT FALSE
)`,
		`CREATE INDEX IF NOT EXISTS nominations_pending_idx
	ON nominations (detail_fetched, category_id, year, id)`,
		`CREATE TABLE IF NOT EXISTS nomination_people (
	nomination_id BIGINT NOT NULL REFERENCES nominations (id),
	role TEXT NOT NULL,
	role_kind TEXT NOT NULL,
	slot INTEGER NOT NULL,
	name TEXT,
	gender TEXT,
	year_birth TEXT,
	year_death TEXT,
	profession TEXT,
	university TEXT,
	city TEXT,
	state TEXT,
	country TEXT,
	motivation TEXT,
	comments TEXT,
	UNIQUE (nomination_id, role)
)`,
	},
}

var summaryColumns = []string{
	"id", "category_id", "year", "nominee_refs", "nominator_refs", "detail_fetched",
}

var personColumns = []string{
	"nomination_id", "role", "role_kind", "slot",
	"name", "gender", "year_birth", "year_death", "profession", "university",
	"city", "state", "country", "motivation", "comments",
}

func (d Dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// InsertSummary builds an insert that leaves an existing row untouched.
func (d Dialect) InsertSummary(s nomination.Summary) (string, []any, error) {
	nominees, err := EncodeRefs(s.Nominees)
	if err != nil {
		return "", nil, err
	}
	nominators, err := EncodeRefs(s.Nominators)
	if err != nil {
		return "", nil, err
	}
	return d.builder().
		Insert(NominationsTable).
		Columns(summaryColumns...).
		Values(s.ID, int(s.Category), s.Year, nominees, nominators, false).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
}

// PendingSummaries selects summaries awaiting their detail page in crawl order.
func (d Dialect) PendingSummaries() (string, []any, error) {
	return d.builder().
		Select(summaryColumns...).
		From(NominationsTable).
		Where(sq.Eq{"detail_fetched": false}).
		OrderBy("category_id", "year", "id").
		ToSql()
}

// AllSummaries selects every summary in export order.
func (d Dialect) AllSummaries() (string, []any, error) {
	return d.builder().
		Select(summaryColumns...).
		From(NominationsTable).
		OrderBy("category_id", "year", "id").
		ToSql()
}

// InsertPerson builds an insert that is a no-op when the role already exists
// for the nomination.
func (d Dialect) InsertPerson(p nomination.Person) (string, []any, error) {
	a := p.Attributes
	return d.builder().
		Insert(PeopleTable).
		Columns(personColumns...).
		Values(
			p.NominationID, p.Role, string(p.Kind), p.Position,
			a.Name, a.Gender, a.YearBirth, a.YearDeath, a.Profession, a.University,
			a.City, a.State, a.Country, a.Motivation, a.Comments,
		).
		Suffix("ON CONFLICT (nomination_id, role) DO NOTHING").
		ToSql()
}

// MarkFetched flags a summary as complete.
func (d Dialect) MarkFetched(id int64) (string, []any, error) {
	return d.builder().
		Update(NominationsTable).
		Set("detail_fetched", true).
		Where(sq.Eq{"id": id}).
		ToSql()
}

// AllPeople selects every detail row grouped by nomination in page order.
func (d Dialect) AllPeople() (string, []any, error) {
	return d.builder().
		Select(personColumns...).
		From(PeopleTable).
		OrderBy("nomination_id", "slot").
		ToSql()
}

// Scanner is satisfied by both *sql.Rows and pgx.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanSummary reads a row selected with the summary columns.
func ScanSummary(row Scanner) (nomination.Summary, error) {
	var (
		s          nomination.Summary
		category   int
		nominees   string
		nominators string
	)
	if err := row.Scan(&s.ID, &category, &s.Year, &nominees, &nominators, &s.DetailFetched); err != nil {
		return nomination.Summary{}, fmt.Errorf("scan summary: %w", err)
	}
	s.Category = nomination.Category(category)
	var err error
	if s.Nominees, err = DecodeRefs(nominees); err != nil {
		return nomination.Summary{}, fmt.Errorf("summary %d nominees: %w", s.ID, err)
	}
	if s.Nominators, err = DecodeRefs(nominators); err != nil {
		return nomination.Summary{}, fmt.Errorf("summary %d nominators: %w", s.ID, err)
	}
	return s, nil
}

// ScanPerson reads a row selected with the person columns.
func ScanPerson(row Scanner) (nomination.Person, error) {
	var (
		p    nomination.Person
		kind string
	)
	a := &p.Attributes
	if err := row.Scan(
		&p.NominationID, &p.Role, &kind, &p.Position,
		&a.Name, &a.Gender, &a.YearBirth, &a.YearDeath, &a.Profession, &a.University,
		&a.City, &a.State, &a.Country, &a.Motivation, &a.Comments,
	); err != nil {
		return nomination.Person{}, fmt.Errorf("scan person: %w", err)
	}
	p.Kind = nomination.RoleKind(kind)
	return p, nil
}

// EncodeRefs serializes person references for the refs columns.
func EncodeRefs(refs []nomination.PersonRef) (string, error) {
	if refs == nil {
		refs = []nomination.PersonRef{}
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("marshal refs: %w", err)
	}
	return string(raw), nil
}

// DecodeRefs is the inverse of EncodeRefs. An empty column decodes to nil.
func DecodeRefs(raw string) ([]nomination.PersonRef, error) {
	if raw == "" {
		return nil, nil
	}
	var refs []nomination.PersonRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("unmarshal refs: %w", err)
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return refs, nil
}

// AssembleRecords joins summaries with their people. Summaries keep their
// order; people keep theirs within each nomination and are split by role
// kind. People with an unknown role kind are left out.
func AssembleRecords(summaries []nomination.Summary, people []nomination.Person) []nomination.Record {
	byNomination := make(map[int64][]nomination.Person, len(summaries))
	for _, p := range people {
		byNomination[p.NominationID] = append(byNomination[p.NominationID], p)
	}
	records := make([]nomination.Record, 0, len(summaries))
	for _, s := range summaries {
		record := nomination.Record{Summary: s}
		for _, p := range byNomination[s.ID] {
			switch p.Kind {
			case nomination.RoleNominee:
				record.Nominees = append(record.Nominees, p)
			case nomination.RoleNominator:
				record.Nominators = append(record.Nominators, p)
			}
		}
		records = append(records, record)
	}
	return records
}
