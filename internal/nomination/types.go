// Package nomination defines the core types shared by the crawl pipeline,
// the parsers, and the persistence backends.
package nomination

import (
	"database/sql"
	"fmt"
	"strings"
)

// Category identifies one of the five prize fields. The numeric value is the
// id the archive uses in listing URLs and is what gets persisted.
type Category int

// Prize categories in archive order.
const (
	CategoryPhysics    Category = 1
	CategoryChemistry  Category = 2
	CategoryMedicine   Category = 3
	CategoryLiterature Category = 4
	CategoryPeace      Category = 5
)

var categoryNames = map[Category]string{
	CategoryPhysics:    "Nobel Prize in Physics",
	CategoryChemistry:  "Nobel Prize in Chemistry",
	CategoryMedicine:   "Nobel Prize in Physiology or Medicine",
	CategoryLiterature: "Nobel Prize in Literature",
	CategoryPeace:      "Nobel Peace Prize",
}

// AllCategories returns the fixed category set in traversal order.
func AllCategories() []Category {
	return []Category{
		CategoryPhysics,
		CategoryChemistry,
		CategoryMedicine,
		CategoryLiterature,
		CategoryPeace,
	}
}

// Valid reports whether c is one of the five known categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// DisplayName is the prize name written to the export.
func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category %d", int(c))
}

func (c Category) String() string {
	return c.DisplayName()
}

// PersonRef is a raw (person id, display name) link found on a listing page.
type PersonRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Summary is a nomination discovered by the overview crawl.
type Summary struct {
	ID            int64
	Category      Category
	Year          int
	Nominees      []PersonRef
	Nominators    []PersonRef
	DetailFetched bool
}

// RoleKind classifies a detail role label.
type RoleKind string

// Role kinds persisted next to the role label.
const (
	RoleNominee   RoleKind = "nominee"
	RoleNominator RoleKind = "nominator"
	RoleUnknown   RoleKind = "unknown"
)

// ClassifyRole derives the role kind from a label such as "Nominee 1" or
// "Nominator 2". Nominator is checked first because it is the longer match.
func ClassifyRole(role string) RoleKind {
	switch {
	case strings.Contains(role, "Nominator"):
		return RoleNominator
	case strings.Contains(role, "Nominee"):
		return RoleNominee
	default:
		return RoleUnknown
	}
}

// Attribute field names as they appear after rubric normalization.
const (
	FieldName       = "name"
	FieldGender     = "gender"
	FieldYearBirth  = "year_birth"
	FieldYearDeath  = "year_death"
	FieldProfession = "profession"
	FieldUniversity = "university"
	FieldCity       = "city"
	FieldState      = "state"
	FieldCountry    = "country"
	FieldMotivation = "motivation"
	FieldComments   = "comments"
)

// Attributes is the fixed attribute schema of a person on a detail page.
// Fields the page does not provide stay invalid (absent).
type Attributes struct {
	Name       sql.NullString
	Gender     sql.NullString
	YearBirth  sql.NullString
	YearDeath  sql.NullString
	Profession sql.NullString
	University sql.NullString
	City       sql.NullString
	State      sql.NullString
	Country    sql.NullString
	Motivation sql.NullString
	Comments   sql.NullString
}

// Field returns a pointer to the attribute named by a normalized field name,
// or nil when the name is not part of the schema.
func (a *Attributes) Field(name string) *sql.NullString {
	switch name {
	case FieldName:
		return &a.Name
	case FieldGender:
		return &a.Gender
	case FieldYearBirth:
		return &a.YearBirth
	case FieldYearDeath:
		return &a.YearDeath
	case FieldProfession:
		return &a.Profession
	case FieldUniversity:
		return &a.University
	case FieldCity:
		return &a.City
	case FieldState:
		return &a.State
	case FieldCountry:
		return &a.Country
	case FieldMotivation:
		return &a.Motivation
	case FieldComments:
		return &a.Comments
	default:
		return nil
	}
}

// Set stores value under name unless the field is unknown or already present.
// It reports whether name belongs to the schema.
func (a *Attributes) Set(name, value string) bool {
	field := a.Field(name)
	if field == nil {
		return false
	}
	if !field.Valid {
		*field = sql.NullString{String: value, Valid: true}
	}
	return true
}

// Person is one role slot on a nomination's detail page.
type Person struct {
	NominationID int64
	Role         string
	Kind         RoleKind
	Position     int
	Attributes   Attributes
}

// Record is a summary joined with its detail rows, split by role kind.
type Record struct {
	Summary    Summary
	Nominees   []Person
	Nominators []Person
}
