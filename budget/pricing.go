// Package budget tracks the cost of LLM usage per chat session.
//
// The chat orchestrator can be configured with a Tracker; every turn's
// usage snapshot is then converted to dollars using the per-model pricing
// table and appended to the ledger.
package budget

import (
	"fmt"
	"sync"
)

// Pricing provides per-model pricing in dollars per one million tokens,
// input and output priced separately.
type Pricing struct {
	mu    sync.RWMutex
	rates map[string]map[string]float64
}

// NewPricing creates a pricing table with default rates (late-2025 list
// prices; unknown models fall back to "default").
func NewPricing() *Pricing {
	return &Pricing{
		rates: map[string]map[string]float64{
			// OpenAI
			"gpt-4o":        {"input": 2.50, "output": 10.00},
			"gpt-4-turbo":   {"input": 10.00, "output": 30.00},
			"gpt-3.5-turbo": {"input": 0.50, "output": 1.50},

			// Anthropic via Bedrock
			"anthropic.claude-3-5-sonnet-20241022-v2:0": {"input": 3.00, "output": 15.00},
			"anthropic.claude-3-haiku-20240307-v1:0":    {"input": 0.25, "output": 1.25},

			// Google
			"gemini-2.0-flash": {"input": 0.10, "output": 0.40},
			"gemini-1.5-pro":   {"input": 1.25, "output": 5.00},

			// Generic fallback
			"default": {"input": 0.01, "output": 0.01},
		},
	}
}

// Calculate computes the cost for tokens in the given direction ("input"
// or "output").
func (p *Pricing) Calculate(model string, tokens int, direction string) (float64, error) {
	if direction != "input" && direction != "output" {
		return 0, fmt.Errorf("direction must be 'input' or 'output', got: %s", direction)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	rates, ok := p.rates[model]
	if !ok {
		rates = p.rates["default"]
	}
	return (float64(tokens) / 1_000_000) * rates[direction], nil
}

// SetModelPricing registers or overrides the rates for a model.
func (p *Pricing) SetModelPricing(model string, inputPerMillion, outputPerMillion float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates[model] = map[string]float64{
		"input":  inputPerMillion,
		"output": outputPerMillion,
	}
}
