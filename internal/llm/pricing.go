package llm

// modelPricing holds USD cost per 1,000 tokens
type modelPricing struct {
	input  float64
	output float64
}

// pricingTable covers the supported models; unknown models fall back to
// defaultPricingModel. Estimated costs are indicative, not a billing
// reconciliation.
var pricingTable = map[string]modelPricing{
	"gpt-4o-mini":        {input: 0.00015, output: 0.0006},
	"gpt-3.5-turbo":      {input: 0.0015, output: 0.002},
	"gpt-3.5-turbo-0125": {input: 0.0015, output: 0.002},
	"gpt-4o":             {input: 0.03, output: 0.06},
}

const defaultPricingModel = "gpt-4o-mini"

// EstimateCost returns the estimated USD cost of one call
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	pricing, ok := pricingTable[model]
	if !ok {
		pricing = pricingTable[defaultPricingModel]
	}

	inputCost := float64(promptTokens) / 1000 * pricing.input
	outputCost := float64(completionTokens) / 1000 * pricing.output

	return inputCost + outputCost
}
