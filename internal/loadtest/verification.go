package loadtest

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/okian/recap/internal/adapters/http/api"
)

// verifyBoard checks the ranking, the total and every acknowledged capper.
func verifyBoard(plan []Planned, v *api.ViewResponse) error {
	sum := decimal.Zero
	var prev decimal.Decimal
	byID := make(map[string]api.RowResponse, len(v.Rows))
	names := make(map[string]int)

	for i, r := range v.Rows {
		units, err := decimal.NewFromString(r.Units.String())
		if err != nil {
			return fmt.Errorf("%w: row %d units %q: %w", ErrInconsistent, i, r.Units, err)
		}
		if rank, err := strconv.Atoi(r.Rank); err != nil || rank != i+1 {
			return fmt.Errorf("%w: row %d has rank %q", ErrInconsistent, i, r.Rank)
		}
		if i > 0 && units.GreaterThan(prev) {
			return fmt.Errorf("%w: row %d (%s) ranks below a lower value (%s)", ErrInconsistent, i, units, prev)
		}
		prev = units
		sum = sum.Add(units)
		byID[r.ID] = r
		names[r.Name]++
	}

	total, err := decimal.NewFromString(v.Total.String())
	if err != nil {
		return fmt.Errorf("%w: total %q: %w", ErrInconsistent, v.Total, err)
	}
	if !total.Equal(sum) {
		return fmt.Errorf("%w: total %s does not match the row sum %s", ErrInconsistent, total, sum)
	}

	for _, p := range plan {
		if p.ID == "" {
			continue
		}
		r, ok := byID[p.ID]
		if !ok {
			return fmt.Errorf("%w: capper %s is missing", ErrInconsistent, p.ID)
		}
		if !p.Committed {
			continue
		}
		if r.Name != p.Name {
			return fmt.Errorf("%w: capper %s has name %q, want %q", ErrInconsistent, p.ID, r.Name, p.Name)
		}
		units, _ := decimal.NewFromString(r.Units.String())
		if !units.Equal(p.Units) {
			return fmt.Errorf("%w: capper %s has units %s, want %s", ErrInconsistent, p.ID, units, p.Units)
		}
		if names[p.Name] != 1 {
			return fmt.Errorf("%w: name %s appears %d times", ErrInconsistent, p.Name, names[p.Name])
		}
	}
	return nil
}
