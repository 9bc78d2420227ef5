package budget

import (
	"sync"
	"time"

	"github.com/scttfrdmn/chatmem/usage"
)

// Cost is one ledger entry: the cost of a single chat turn.
type Cost struct {
	SessionID    string
	Model        string
	InputTokens  int
	OutputTokens int
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
	Timestamp    time.Time
}

// Tracker converts usage snapshots to dollar costs and keeps a per-session
// ledger. Safe for concurrent use.
//
// Example:
//
//	tracker := budget.NewTracker(nil)
//	tracker.RecordTurn("session-1", "gpt-4o", snapshot)
//	fmt.Printf("$%.4f\n", tracker.SessionCost("session-1"))
type Tracker struct {
	pricing *Pricing
	mu      sync.RWMutex
	costs   []*Cost
}

// NewTracker creates a cost tracker. A nil pricing uses the defaults.
func NewTracker(pricing *Pricing) *Tracker {
	if pricing == nil {
		pricing = NewPricing()
	}
	return &Tracker{pricing: pricing}
}

// RecordTurn appends the cost of one turn's accumulated usage.
func (t *Tracker) RecordTurn(sessionID, model string, snapshot usage.Snapshot) (*Cost, error) {
	inputCost, err := t.pricing.Calculate(model, snapshot.PromptTokens, "input")
	if err != nil {
		return nil, err
	}
	outputCost, err := t.pricing.Calculate(model, snapshot.CompletionTokens, "output")
	if err != nil {
		return nil, err
	}

	cost := &Cost{
		SessionID:    sessionID,
		Model:        model,
		InputTokens:  snapshot.PromptTokens,
		OutputTokens: snapshot.CompletionTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
		Timestamp:    time.Now().UTC(),
	}

	t.mu.Lock()
	t.costs = append(t.costs, cost)
	t.mu.Unlock()
	return cost, nil
}

// SessionCost returns the accumulated cost for one session id.
func (t *Tracker) SessionCost(sessionID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, c := range t.costs {
		if c.SessionID == sessionID {
			total += c.TotalCost
		}
	}
	return total
}

// TotalCost returns the accumulated cost across all sessions.
func (t *Tracker) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, c := range t.costs {
		total += c.TotalCost
	}
	return total
}

// Costs returns a copy of the ledger, oldest first.
func (t *Tracker) Costs() []*Cost {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Cost, len(t.costs))
	copy(out, t.costs)
	return out
}
