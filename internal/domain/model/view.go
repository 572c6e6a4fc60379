package model

import "github.com/shopspring/decimal"

// TopTierRanks is the number of leading ranks classified as top tier.
const TopTierRanks = 3

// State is the observable cardinality state of the board.
type State string

// Board states.
const (
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
)

// Row is one element of the ranked view.
type Row struct {
	Rank           string // 1-based, zero padded to two digits
	Index          int    // 0-based position, valid until the next publish
	ID             string
	Name           string
	Role           string
	Units          decimal.Decimal
	UnitsDisplay   string
	TopTier        bool
	Nonnegative    bool
	PendingRemoval bool
}

// View is the derived projection handed to renderers after every mutation.
type View struct {
	Rows          []Row
	Total         decimal.Decimal
	TotalDisplay  string
	TotalNegative bool
	Version       uint64 // increments on every publish
}

// State reports Empty for a view without rows.
func (v View) State() State {
	if len(v.Rows) == 0 {
		return StateEmpty
	}
	return StatePopulated
}

// Find returns the row for an entry id.
func (v View) Find(id string) (Row, bool) {
	for _, r := range v.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}
