package loadtest

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Units are drawn in hundredths from [minCents, minCents+spanCents).
const (
	minCents  = -5000
	spanCents = 25000
)

// randomUnits returns a two-decimal value between -50.00 and 199.99.
func randomUnits() decimal.Decimal {
	n, err := rand.Int(rand.Reader, big.NewInt(spanCents))
	if err != nil {
		return decimal.Zero
	}
	return decimal.New(n.Int64()+minCents, -2)
}

// generatePlan creates n cappers with unique keys and names. The run prefix
// keeps keys from colliding with earlier runs against the same server.
func generatePlan(n int) []Planned {
	run := uuid.NewString()[:8]
	plan := make([]Planned, n)
	for i := range plan {
		plan[i] = Planned{
			AddKey:    fmt.Sprintf("load-%s-add-%d", run, i),
			NameKey:   fmt.Sprintf("load-%s-name-%d", run, i),
			CommitKey: fmt.Sprintf("load-%s-units-%d", run, i),
			Name:      fmt.Sprintf("@load%s_%04d", run, i),
			Units:     randomUnits(),
		}
	}
	return plan
}
