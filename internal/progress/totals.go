package progress

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Totals accumulates running processed/accepted point counters across a multi-billion-point
// run using decimal.Decimal rather than float64, so the final summary's
// percentages never show floating drift once the accumulated total exceeds
// float64's exact-integer range (§2.1).
type Totals struct {
	mu        sync.Mutex
	processed decimal.Decimal
	accepted  decimal.Decimal
}

func NewTotals() *Totals {
	return &Totals{}
}

func (t *Totals) AddProcessed(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed = t.processed.Add(decimal.NewFromInt(n))
}

func (t *Totals) AddAccepted(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accepted = t.accepted.Add(decimal.NewFromInt(n))
}

// Summary renders the "processed=X accepted=Y (p%)" line. p is accepted /
// processed * 100, rounded to two decimal places and printed without
// trailing zeros; it is 0 when nothing has been processed yet.
func (t *Totals) Summary() string {
	t.mu.Lock()
	processed := t.processed
	accepted := t.accepted
	t.mu.Unlock()

	pct := decimal.Zero
	if !processed.IsZero() {
		pct = accepted.Mul(decimal.NewFromInt(100)).DivRound(processed, 2)
	}
	return fmt.Sprintf("processed=%s accepted=%s (%s%%)", processed.String(), accepted.String(), pct.String())
}
