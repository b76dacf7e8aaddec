package pricing

import (
	"sort"
	"strings"
	"sync"
)

// Resolver maps model identifiers to pricing. Lookups are tried in order:
// exact key, key with a provider prefix prepended, prefix-normalized key,
// then substring containment in either direction. Resolved names are memoized.
type Resolver struct {
	table map[string]ModelPricing
	keys  []string

	mu   sync.RWMutex
	memo map[string]resolution
}

type resolution struct {
	pricing ModelPricing
	found   bool
}

// NewResolver creates a resolver over the built-in pricing table.
func NewResolver() *Resolver {
	return NewResolverWithTable(modelPricingMap)
}

// NewResolverWithTable creates a resolver over a caller supplied table.
func NewResolverWithTable(table map[string]ModelPricing) *Resolver {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return &Resolver{
		table: table,
		keys:  keys,
		memo:  make(map[string]resolution),
	}
}

// Resolve returns the pricing for modelName and whether any rule matched.
func (r *Resolver) Resolve(modelName string) (ModelPricing, bool) {
	if modelName == "" {
		return ModelPricing{}, false
	}

	r.mu.RLock()
	res, ok := r.memo[modelName]
	r.mu.RUnlock()
	if ok {
		return res.pricing, res.found
	}

	pricing, found := r.lookup(modelName)

	r.mu.Lock()
	r.memo[modelName] = resolution{pricing: pricing, found: found}
	r.mu.Unlock()

	return pricing, found
}

func (r *Resolver) lookup(modelName string) (ModelPricing, bool) {
	if pricing, ok := r.table[modelName]; ok {
		return pricing, true
	}

	for _, prefix := range ProviderPrefixes {
		if pricing, ok := r.table[prefix+modelName]; ok {
			return pricing, true
		}
	}

	normalized := NormalizeModelName(modelName)
	for _, key := range r.keys {
		if NormalizeModelName(key) == normalized {
			return r.table[key], true
		}
	}

	if key := r.fuzzyMatch(modelName); key != "" {
		return r.table[key], true
	}

	return ModelPricing{}, false
}

// fuzzyMatch returns the longest table key contained in modelName or
// containing it, ignoring case. Equal lengths resolve to the smaller key.
func (r *Resolver) fuzzyMatch(modelName string) string {
	lower := strings.ToLower(modelName)
	best := ""
	for _, key := range r.keys {
		lk := strings.ToLower(key)
		if !strings.Contains(lower, lk) && !strings.Contains(lk, lower) {
			continue
		}
		// keys are sorted, so a strictly longer key is the only way to replace best
		if len(key) > len(best) {
			best = key
		}
	}
	return best
}

// NormalizeModelName lowercases name and strips each provider prefix in order.
func NormalizeModelName(name string) string {
	normalized := strings.ToLower(name)
	for _, prefix := range ProviderPrefixes {
		normalized = strings.TrimPrefix(normalized, prefix)
	}
	return normalized
}

// SupportedModels lists the table keys in sorted order.
func (r *Resolver) SupportedModels() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}
