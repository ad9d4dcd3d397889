package domain

import "strings"

// TokenUsage is the token accounting reported by a backend call.
// Embedding calls only report input tokens.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates another usage into u.
func (u *TokenUsage) Add(o TokenUsage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
}

// ModelPricing holds USD rates per million tokens.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Cost returns the USD cost of the usage at these rates.
func (p ModelPricing) Cost(u TokenUsage) float64 {
	return float64(u.InputTokens)*p.InputPerMillion/1_000_000 +
		float64(u.OutputTokens)*p.OutputPerMillion/1_000_000
}

// Pricing maps model names to their rates.
type Pricing map[string]ModelPricing

// DefaultPricing returns list prices for the models the pipeline uses.
// Local models are free and absent from the table.
func DefaultPricing() Pricing {
	return Pricing{
		"text-embedding-3-small": {InputPerMillion: 0.020},
		"text-embedding-3-large": {InputPerMillion: 0.130},
		"text-embedding-ada-002": {InputPerMillion: 0.100},
		"gpt-4o":                 {InputPerMillion: 5.00, OutputPerMillion: 15.00},
		"gpt-4o-mini":            {InputPerMillion: 0.15, OutputPerMillion: 0.60},
		"claude-sonnet-4":        {InputPerMillion: 3.00, OutputPerMillion: 15.00},
		"claude-3-5-sonnet":      {InputPerMillion: 3.00, OutputPerMillion: 15.00},
		"claude-3-5-haiku":       {InputPerMillion: 0.80, OutputPerMillion: 4.00},
		"gemini-1.5-flash":       {InputPerMillion: 0.075, OutputPerMillion: 0.30},
		"gemini-1.5-pro":         {InputPerMillion: 1.25, OutputPerMillion: 5.00},
	}
}

// For returns the rates for a model. Dated snapshots and aliases such as
// "gpt-4o-2024-08-06" or "claude-3-5-sonnet-latest" resolve to the longest
// table entry that prefixes them. Unknown models cost nothing.
func (p Pricing) For(model string) ModelPricing {
	if rates, ok := p[model]; ok {
		return rates
	}
	best := ""
	for name := range p {
		if len(name) > len(best) && strings.HasPrefix(model, name+"-") {
			best = name
		}
	}
	return p[best]
}

// Cost returns the USD cost of usage under a model.
func (p Pricing) Cost(model string, u TokenUsage) float64 {
	return p.For(model).Cost(u)
}

// Merge returns a copy of p with overrides applied.
func (p Pricing) Merge(overrides Pricing) Pricing {
	out := make(Pricing, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// EstimatedTokensPerPair is the planning estimate for one synthesis call.
const EstimatedTokensPerPair = 2000
