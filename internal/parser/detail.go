package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
)

// detailTableSelectors are tried in order to find the bordered table holding
// the person rows.
var detailTableSelectors = []string{
	`table[style*="border: 1px solid"]`,
	`table[border]`,
}

// Field is one normalized (name, value) pair read from a detail row.
type Field struct {
	Name  string
	Value string
}

// Subject groups the fields that follow one bold header, e.g. "Nominee 1".
type Subject struct {
	Label  string
	Fields []Field
}

// DetailPage is the ordered content of a nomination page.
type DetailPage struct {
	Subjects []Subject
}

// Subject returns the fields recorded under label.
func (d DetailPage) Subject(label string) ([]Field, bool) {
	for _, s := range d.Subjects {
		if s.Label == label {
			return s.Fields, true
		}
	}
	return nil, false
}

// People converts the page into fixed-schema person records. Field names that
// are not part of nomination.Attributes are returned in unknown.
func (d DetailPage) People(nominationID int64) (people []nomination.Person, unknown []string) {
	seen := map[string]struct{}{}
	for i, subject := range d.Subjects {
		person := nomination.Person{
			NominationID: nominationID,
			Role:         subject.Label,
			Kind:         nomination.ClassifyRole(subject.Label),
			Position:     i,
		}
		for _, f := range subject.Fields {
			if person.Attributes.Set(f.Name, f.Value) {
				continue
			}
			if _, dup := seen[f.Name]; !dup {
				seen[f.Name] = struct{}{}
				unknown = append(unknown, f.Name)
			}
		}
		people = append(people, person)
	}
	return people, unknown
}

// ParseDetail reads the bordered detail table. A bold cell starts a new
// subject; the rows below it are attributed to that subject until the next
// bold cell. A missing table is a *nomination.ParseError.
func ParseDetail(doc *goquery.Document) (DetailPage, error) {
	table := findDetailTable(doc)
	if table == nil {
		return DetailPage{}, &nomination.ParseError{Context: "detail page", Reason: "detail table not found"}
	}

	var (
		page    DetailPage
		subject string
		index   = map[string]int{}
	)
	add := func(name, value string) {
		i, ok := index[subject]
		if !ok {
			i = len(page.Subjects)
			index[subject] = i
			page.Subjects = append(page.Subjects, Subject{Label: subject})
		}
		page.Subjects[i].Fields = append(page.Subjects[i].Fields, Field{Name: name, Value: value})
	}

	tableRows(table).Each(func(_ int, row *goquery.Selection) {
		rowText := strings.TrimSpace(row.Text())
		if rowText == "" {
			return
		}
		if header := row.Find("b").First(); header.Length() > 0 {
			subject = strings.TrimSpace(strings.ReplaceAll(header.Text(), ":", ""))
			return
		}
		if subject == "" {
			return
		}

		cells := row.Find("td")
		if rubric := row.Find("span.rubr").First(); rubric.Length() > 0 {
			value := strings.TrimSpace(cells.Eq(1).Text())
			if cells.Length() < 2 {
				value = strings.TrimSpace(strings.TrimPrefix(rowText, strings.TrimSpace(rubric.Text())))
			}
			add(NormalizeFieldName(rubric.Text()), value)
			return
		}

		switch {
		case cells.Length() == 1:
			add(nomination.FieldComments, rowText)
		case cells.Length() > 1:
			name := NormalizeFieldName(cells.Eq(0).Text())
			if name == "comment" {
				name = nomination.FieldComments
			}
			add(name, strings.TrimSpace(cells.Eq(1).Text()))
		}
	})

	return page, nil
}

func findDetailTable(doc *goquery.Document) *goquery.Selection {
	for _, sel := range detailTableSelectors {
		if table := doc.Find(sel).First(); table.Length() > 0 {
			return table
		}
	}
	return nil
}

// NormalizeFieldName turns a rubric label such as "Year, Birth:" into
// "year_birth": lowercase, colons and commas removed, spaces replaced by
// underscores.
func NormalizeFieldName(label string) string {
	name := strings.TrimSpace(strings.ReplaceAll(label, "\u00a0", " "))
	name = strings.ToLower(name)
	name = strings.NewReplacer(":", "", ",", "").Replace(name)
	return strings.ReplaceAll(name, " ", "_")
}
