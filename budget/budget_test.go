package budget

import (
	"math"
	"testing"

	"github.com/scttfrdmn/chatmem/usage"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPricingCalculate(t *testing.T) {
	pricing := NewPricing()

	// gpt-4o: $2.50 input / $10.00 output per million tokens.
	input, err := pricing.Calculate("gpt-4o", 1_000_000, "input")
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if !almostEqual(input, 2.50) {
		t.Errorf("Expected $2.50, got $%f", input)
	}

	output, err := pricing.Calculate("gpt-4o", 500_000, "output")
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if !almostEqual(output, 5.00) {
		t.Errorf("Expected $5.00, got $%f", output)
	}
}

func TestPricingUnknownModelFallsBack(t *testing.T) {
	pricing := NewPricing()

	cost, err := pricing.Calculate("some-local-model", 1_000_000, "input")
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if !almostEqual(cost, 0.01) {
		t.Errorf("Expected default $0.01, got $%f", cost)
	}
}

func TestPricingBadDirection(t *testing.T) {
	pricing := NewPricing()
	if _, err := pricing.Calculate("gpt-4o", 100, "sideways"); err == nil {
		t.Error("Expected error for bad direction")
	}
}

func TestSetModelPricing(t *testing.T) {
	pricing := NewPricing()
	pricing.SetModelPricing("my-model", 1.00, 2.00)

	cost, err := pricing.Calculate("my-model", 1_000_000, "output")
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if !almostEqual(cost, 2.00) {
		t.Errorf("Expected $2.00, got $%f", cost)
	}
}

func TestTrackerRecordTurn(t *testing.T) {
	tracker := NewTracker(nil)

	snapshot := usage.Snapshot{PromptTokens: 1_000_000, CompletionTokens: 100_000, TotalTokens: 1_100_000, Calls: 1}
	cost, err := tracker.RecordTurn("s1", "gpt-4o", snapshot)
	if err != nil {
		t.Fatalf("RecordTurn failed: %v", err)
	}

	if !almostEqual(cost.InputCost, 2.50) {
		t.Errorf("Expected input cost $2.50, got $%f", cost.InputCost)
	}
	if !almostEqual(cost.OutputCost, 1.00) {
		t.Errorf("Expected output cost $1.00, got $%f", cost.OutputCost)
	}
	if !almostEqual(cost.TotalCost, 3.50) {
		t.Errorf("Expected total $3.50, got $%f", cost.TotalCost)
	}
	if cost.SessionID != "s1" || cost.Model != "gpt-4o" {
		t.Errorf("Ledger entry mislabeled: %+v", cost)
	}
}

func TestTrackerAggregates(t *testing.T) {
	tracker := NewTracker(nil)
	snapshot := usage.Snapshot{PromptTokens: 1_000_000, Calls: 1}

	for _, sessionID := range []string{"s1", "s1", "s2"} {
		if _, err := tracker.RecordTurn(sessionID, "gpt-4o", snapshot); err != nil {
			t.Fatalf("RecordTurn failed: %v", err)
		}
	}

	if got := tracker.SessionCost("s1"); !almostEqual(got, 5.00) {
		t.Errorf("Expected s1 cost $5.00, got $%f", got)
	}
	if got := tracker.SessionCost("s2"); !almostEqual(got, 2.50) {
		t.Errorf("Expected s2 cost $2.50, got $%f", got)
	}
	if got := tracker.TotalCost(); !almostEqual(got, 7.50) {
		t.Errorf("Expected total $7.50, got $%f", got)
	}
	if got := tracker.SessionCost("missing"); got != 0 {
		t.Errorf("Expected zero cost for unknown session, got $%f", got)
	}
	if got := len(tracker.Costs()); got != 3 {
		t.Errorf("Expected 3 ledger entries, got %d", got)
	}
}
