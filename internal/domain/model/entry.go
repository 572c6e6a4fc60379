// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Default content for entries created by an add intent.
const (
	DefaultName = "@NewCapper"
	DefaultRole = "Specialist"
)

// ErrUnknownField is returned when a field name is not one of name, role or units.
var ErrUnknownField = errors.New("unknown field")

// Entry is one capper record.
type Entry struct {
	ID    string          // stable identifier minted at creation
	Name  string          // free-form, not unique
	Role  string          // free-form
	Units decimal.Decimal // sort key and aggregation operand
}

// NewDefaultEntry returns the fixed content used by add intents.
func NewDefaultEntry(id string) Entry {
	return Entry{ID: id, Name: DefaultName, Role: DefaultRole, Units: decimal.Zero}
}

// Field names an editable entry field.
type Field string

// Editable fields.
const (
	FieldName  Field = "name"
	FieldRole  Field = "role"
	FieldUnits Field = "units"
)

// ParseField validates a field name (case-insensitive).
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldName, FieldRole, FieldUnits:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// Target addresses an entry either by identifier or by its position in the
// most recently published ranked view.
type Target struct {
	EntryID string
	Index   int
	ByIndex bool
}

// ByID targets an entry by its stable identifier.
func ByID(id string) Target { return Target{EntryID: id} }

// AtIndex targets the entry at a 0-based position of the last published view.
func AtIndex(i int) Target { return Target{Index: i, ByIndex: true} }

func (t Target) String() string {
	if t.ByIndex {
		return fmt.Sprintf("index:%d", t.Index)
	}
	return "id:" + t.EntryID
}

// DefaultSeed returns the startup roster.
func DefaultSeed() []Entry {
	return []Entry{
		{Name: "@MarshyPicks", Role: "Lead Analyst", Units: decimal.RequireFromString("173.27")},
		{Name: "@Capper01", Role: "NBA Specialist", Units: decimal.RequireFromString("19.37")},
		{Name: "@Capper02", Role: "NFL Expert", Units: decimal.RequireFromString("8.67")},
		{Name: "@Capper03", Role: "MMA Specialist", Units: decimal.RequireFromString("4.62")},
		{Name: "@Capper04", Role: "Props Expert", Units: decimal.RequireFromString("4.38")},
		{Name: "@Capper05", Role: "Soccer Analyst", Units: decimal.RequireFromString("1.59")},
		{Name: "@Capper06", Role: "NHL Expert", Units: decimal.RequireFromString("-2.37")},
		{Name: "@Capper07", Role: "Tennis Analyst", Units: decimal.RequireFromString("-2.45")},
	}
}
