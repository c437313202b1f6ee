package generate

// ModelPricing is the provider's price for one model, in USD per million
// tokens, split by direction. Prompt and completion tokens are billed at
// different rates on every hosted provider.
type ModelPricing struct {
	// PromptUSDPerMTok is the price of one million prompt tokens.
	PromptUSDPerMTok float64 `yaml:"prompt_usd_per_mtok"`

	// CompletionUSDPerMTok is the price of one million completion tokens.
	CompletionUSDPerMTok float64 `yaml:"completion_usd_per_mtok"`
}

// Cost returns the USD cost of a call with the given token counts.
func (p ModelPricing) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*p.PromptUSDPerMTok/1e6 +
		float64(completionTokens)*p.CompletionUSDPerMTok/1e6
}

// defaultPricing lists published list prices for the hosted models the app
// ships presets for. Locally served models cost nothing and are absent; an
// unlisted model reports zero cost. Prices drift — the config file can
// override any entry.
var defaultPricing = map[string]ModelPricing{
	"gpt-4o":           {PromptUSDPerMTok: 2.50, CompletionUSDPerMTok: 10.00},
	"gpt-4o-mini":      {PromptUSDPerMTok: 0.15, CompletionUSDPerMTok: 0.60},
	"gpt-4.1":          {PromptUSDPerMTok: 2.00, CompletionUSDPerMTok: 8.00},
	"gpt-4.1-mini":     {PromptUSDPerMTok: 0.40, CompletionUSDPerMTok: 1.60},
	"gemini-1.5-pro":   {PromptUSDPerMTok: 1.25, CompletionUSDPerMTok: 5.00},
	"gemini-1.5-flash": {PromptUSDPerMTok: 0.075, CompletionUSDPerMTok: 0.30},
	"gemini-2.0-flash": {PromptUSDPerMTok: 0.10, CompletionUSDPerMTok: 0.40},
}

// PriceFor resolves the pricing for a model name, consulting overrides
// first, then the built-in table. Unknown models price at zero.
func PriceFor(model string, overrides map[string]ModelPricing) ModelPricing {
	if p, ok := overrides[model]; ok {
		return p
	}
	if p, ok := defaultPricing[model]; ok {
		return p
	}
	return ModelPricing{}
}
