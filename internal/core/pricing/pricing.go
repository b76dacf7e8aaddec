package pricing

import "github.com/penwyp/go-claude-usage/internal/core/model"

// Rate is a per-million-token price for one token category. Tiered applies to
// the tokens above the tiered threshold; zero means the model has no tier.
type Rate struct {
	Base   float64
	Tiered float64
}

// HasTier reports whether tokens above the threshold use a different price.
func (r Rate) HasTier() bool {
	return r.Tiered > 0
}

// ModelPricing defines token pricing for a Claude model
type ModelPricing struct {
	Input         Rate
	Output        Rate
	CacheCreation Rate
	CacheRead     Rate
}

// ProviderPrefixes are tried in order when resolving and normalizing names.
var ProviderPrefixes = []string{
	"anthropic/",
	"claude-",
	"claude-3-",
	"claude-3-5-",
}

var (
	sonnetRates = ModelPricing{
		Input:         Rate{Base: 3.00},
		Output:        Rate{Base: 15.00},
		CacheCreation: Rate{Base: 3.75},
		CacheRead:     Rate{Base: 0.30},
	}
	opusRates = ModelPricing{
		Input:         Rate{Base: 15.00},
		Output:        Rate{Base: 75.00},
		CacheCreation: Rate{Base: 18.75},
		CacheRead:     Rate{Base: 1.50},
	}
)

// modelPricingMap stores pricing for all known Claude models.
var modelPricingMap = map[string]ModelPricing{
	model.ModelSonnet4: {
		Input:         Rate{Base: 3.00, Tiered: 6.00},
		Output:        Rate{Base: 15.00, Tiered: 22.50},
		CacheCreation: Rate{Base: 3.75, Tiered: 7.50},
		CacheRead:     Rate{Base: 0.30, Tiered: 0.60},
	},
	model.ModelOpus4: {
		Input:         Rate{Base: 15.00, Tiered: 30.00},
		Output:        Rate{Base: 75.00, Tiered: 112.50},
		CacheCreation: Rate{Base: 18.75, Tiered: 37.50},
		CacheRead:     Rate{Base: 1.50, Tiered: 3.00},
	},
	model.ModelOpus45: {
		Input:         Rate{Base: 15.00, Tiered: 30.00},
		Output:        Rate{Base: 75.00, Tiered: 112.50},
		CacheCreation: Rate{Base: 18.75, Tiered: 37.50},
		CacheRead:     Rate{Base: 1.50, Tiered: 3.00},
	},
	model.ModelSonnet35:          sonnetRates,
	"claude-3-5-sonnet-20240620": sonnetRates,
	model.ModelHaiku35: {
		Input:         Rate{Base: 0.80},
		Output:        Rate{Base: 4.00},
		CacheCreation: Rate{Base: 1.00},
		CacheRead:     Rate{Base: 0.08},
	},
	"claude-3-opus-20240229":   opusRates,
	"claude-3-sonnet-20240229": sonnetRates,
	model.ModelHaiku3: {
		Input:         Rate{Base: 0.25},
		Output:        Rate{Base: 1.25},
		CacheCreation: Rate{Base: 0.30},
		CacheRead:     Rate{Base: 0.03},
	},
}

// GetAllPricings returns a copy of the built-in pricing table.
func GetAllPricings() map[string]ModelPricing {
	result := make(map[string]ModelPricing, len(modelPricingMap))
	for k, v := range modelPricingMap {
		result[k] = v
	}
	return result
}
