package params

import "strings"

// Registry maps discriminator tags to strategies. Lookups never fail: an
// unmapped tag resolves to the fallback strategy.
type Registry struct {
	byTag    map[string]Strategy
	fallback Strategy
}

func NewRegistry(fallback Strategy, strategies ...Strategy) *Registry {
	registry := &Registry{
		byTag:    make(map[string]Strategy),
		fallback: fallback,
	}
	if fallback != nil {
		registry.Register(fallback)
	}
	for _, strategy := range strategies {
		registry.Register(strategy)
	}
	return registry
}

func DefaultRegistry() *Registry {
	return NewRegistry(
		WebsiteTrafficStrategy(),
		WebsiteConversionsStrategy(),
		InstantFormLeadsStrategy(),
		AppInstallsStrategy(),
		MessengerStrategy(),
		AwarenessStrategy(),
	)
}

// Register binds the strategy's name and tags. Later registrations win.
func (r *Registry) Register(strategy Strategy) {
	r.byTag[normalizeTag(strategy.Name())] = strategy
	for _, tag := range strategy.Tags() {
		r.byTag[normalizeTag(tag)] = strategy
	}
}

// Lookup returns the strategy bound to tag, if any.
func (r *Registry) Lookup(tag string) (Strategy, bool) {
	strategy, ok := r.byTag[normalizeTag(tag)]
	return strategy, ok
}

// Resolve tries the destination type, then the objective, then falls back.
// matched reports whether one of the tags was known.
func (r *Registry) Resolve(destinationType string, objective string) (strategy Strategy, matched bool) {
	if found, ok := r.Lookup(destinationType); ok {
		return found, true
	}
	if found, ok := r.Lookup(objective); ok {
		return found, true
	}
	return r.Fallback(), false
}

func (r *Registry) Fallback() Strategy {
	if r.fallback == nil {
		return WebsiteTrafficStrategy()
	}
	return r.fallback
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return strings.NewReplacer("-", "_", " ", "_").Replace(tag)
}
