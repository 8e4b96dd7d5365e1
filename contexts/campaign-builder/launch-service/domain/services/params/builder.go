package params

import (
	"errors"
	"fmt"
	"strings"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
)

var (
	ErrUnsupportedKind = errors.New("unsupported entity kind")
	ErrOutOfRange      = errors.New("entity index out of range")
)

// Form addresses one entity inside a specification together with the remote
// ids of the entities it depends on.
type Form struct {
	Spec          entities.CampaignSpecification
	AdSetIndex    int
	CreativeIndex int
	CampaignID    string
	AdSetID       string
	CreativeID    string
}

// VariantPayload is one ad-set payload; Label is empty outside multi-variant
// launches.
type VariantPayload struct {
	Label   string
	Payload Payload
}

type Builder struct {
	Registry *Registry
	Catalog  Catalog
}

func NewBuilder(registry *Registry, catalog Catalog) Builder {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if len(catalog.Variants) == 0 {
		catalog = DefaultCatalog()
	}
	return Builder{Registry: registry, Catalog: catalog}
}

// StrategyFor resolves the strategy for one ad set of spec. matched is false
// when the default strategy was chosen because no tag was known.
func (b Builder) StrategyFor(spec entities.CampaignSpecification, adSetIndex int) (Strategy, bool) {
	return b.registry().Resolve(spec.DestinationTag(adSetIndex), spec.ObjectiveTag())
}

func (b Builder) CampaignParams(spec entities.CampaignSpecification) Payload {
	strategy, _ := b.StrategyFor(spec, 0)
	return strategy.Campaign(spec)
}

// AdSetParams builds the ad-set payload once and, for multi-variant
// specifications, layers each variant on a copy of it.
func (b Builder) AdSetParams(spec entities.CampaignSpecification, adSetIndex int, campaignID string) ([]VariantPayload, error) {
	if adSetIndex < 0 || adSetIndex >= len(spec.AdSets) {
		return nil, fmt.Errorf("%w: ad set %d", ErrOutOfRange, adSetIndex)
	}
	strategy, _ := b.StrategyFor(spec, adSetIndex)
	base := strategy.AdSet(spec.AdSets[adSetIndex], campaignID)
	if !spec.MultiVariant {
		return []VariantPayload{{Payload: base}}, nil
	}
	out := make([]VariantPayload, 0, len(b.VariantLabels(spec)))
	for _, label := range b.VariantLabels(spec) {
		out = append(out, VariantPayload{
			Label:   label,
			Payload: b.catalog().Lookup(label).Apply(base),
		})
	}
	return out, nil
}

// VariantLabels returns the labels a multi-variant launch fans out into.
func (b Builder) VariantLabels(spec entities.CampaignSpecification) []string {
	if !spec.MultiVariant {
		return nil
	}
	if len(spec.Variants) > 0 {
		return distinctLabels(spec.Variants)
	}
	return b.catalog().Labels()
}

// distinctLabels trims labels and drops blanks and case-insensitive repeats,
// keeping first occurrence order.
func distinctLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		key := strings.ToLower(label)
		if label == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	return out
}

func (b Builder) CreativeParams(spec entities.CampaignSpecification, adSetIndex int, creativeIndex int) (Payload, error) {
	adSet, creative, err := locate(spec, adSetIndex, creativeIndex)
	if err != nil {
		return nil, err
	}
	strategy, _ := b.StrategyFor(spec, adSetIndex)
	return strategy.Creative(creative, adSet), nil
}

func (b Builder) AdParams(spec entities.CampaignSpecification, adSetIndex int, creativeIndex int, adSetID string, creativeID string) (Payload, error) {
	_, creative, err := locate(spec, adSetIndex, creativeIndex)
	if err != nil {
		return nil, err
	}
	strategy, _ := b.StrategyFor(spec, adSetIndex)
	return strategy.Ad(creative, adSetID, creativeID), nil
}

// Build is the tag-addressed entry point: the tag picks the strategy
// directly, falling back to the default when unknown.
func (b Builder) Build(kind entities.StageKind, tag string, form Form, multiVariant bool) ([]Payload, error) {
	strategy, ok := b.registry().Lookup(tag)
	if !ok {
		strategy = b.registry().Fallback()
	}
	switch kind {
	case entities.StageCampaign:
		return []Payload{strategy.Campaign(form.Spec)}, nil
	case entities.StageAdSet:
		if form.AdSetIndex < 0 || form.AdSetIndex >= len(form.Spec.AdSets) {
			return nil, fmt.Errorf("%w: ad set %d", ErrOutOfRange, form.AdSetIndex)
		}
		base := strategy.AdSet(form.Spec.AdSets[form.AdSetIndex], form.CampaignID)
		if !multiVariant {
			return []Payload{base}, nil
		}
		spec := form.Spec
		spec.MultiVariant = true
		out := make([]Payload, 0)
		for _, label := range b.VariantLabels(spec) {
			out = append(out, b.catalog().Lookup(label).Apply(base))
		}
		return out, nil
	case entities.StageCreative:
		adSet, creative, err := locate(form.Spec, form.AdSetIndex, form.CreativeIndex)
		if err != nil {
			return nil, err
		}
		return []Payload{strategy.Creative(creative, adSet)}, nil
	case entities.StageAd:
		_, creative, err := locate(form.Spec, form.AdSetIndex, form.CreativeIndex)
		if err != nil {
			return nil, err
		}
		return []Payload{strategy.Ad(creative, form.AdSetID, form.CreativeID)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
}

func (b Builder) registry() *Registry {
	if b.Registry == nil {
		return DefaultRegistry()
	}
	return b.Registry
}

func (b Builder) catalog() Catalog {
	if len(b.Catalog.Variants) == 0 {
		return DefaultCatalog()
	}
	return b.Catalog
}

func locate(spec entities.CampaignSpecification, adSetIndex int, creativeIndex int) (entities.AdSetInput, entities.CreativeInput, error) {
	if adSetIndex < 0 || adSetIndex >= len(spec.AdSets) {
		return entities.AdSetInput{}, entities.CreativeInput{}, fmt.Errorf("%w: ad set %d", ErrOutOfRange, adSetIndex)
	}
	adSet := spec.AdSets[adSetIndex]
	if creativeIndex < 0 || creativeIndex >= len(adSet.Creatives) {
		return entities.AdSetInput{}, entities.CreativeInput{}, fmt.Errorf("%w: creative %d.%d", ErrOutOfRange, adSetIndex, creativeIndex)
	}
	return adSet, adSet.Creatives[creativeIndex], nil
}
