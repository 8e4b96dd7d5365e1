package params_test

import (
	"testing"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	"adpilot/contexts/campaign-builder/launch-service/domain/services/params"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleSpec() entities.CampaignSpecification {
	return entities.CampaignSpecification{
		AdAccountID:     "act_1",
		DestinationType: "WEBSITE",
		Campaign:        entities.CampaignInput{Name: "Launch", DailyBudget: 1000},
		AdSets: []entities.AdSetInput{{
			AdSetName:   "Core",
			DailyBudget: 2000,
			Schedule:    entities.Schedule{StartTime: "2026-01-01T00:00:00Z"},
			Targeting: entities.Targeting{
				Countries: []string{"US", ""},
				AgeMin:    25,
				Interests: []string{"6003139266461"},
			},
			Creatives: []entities.CreativeInput{{
				Name:    "Hero",
				PageID:  "page-1",
				LinkURL: "https://shop.example",
				Message: "Try it",
			}},
		}},
	}
}

func TestStripRemovesEmptyValuesRecursively(t *testing.T) {
	got := params.Strip(params.Payload{
		"name":     "x",
		"blank":    "  ",
		"nil":      nil,
		"zero":     0,
		"flag":     false,
		"empty":    []string{""},
		"nested":   params.Payload{"inner": "", "keep": int64(5)},
		"gone":     params.Payload{"inner": nil},
		"items":    []any{"", "a", nil},
		"payloads": []params.Payload{{"a": ""}, {"b": "c"}},
	})

	want := params.Payload{
		"name":     "x",
		"flag":     false,
		"nested":   params.Payload{"keep": int64(5)},
		"items":    []any{"a"},
		"payloads": []params.Payload{{"b": "c"}},
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestBuilderIsPure(t *testing.T) {
	builder := params.NewBuilder(nil, params.Catalog{})
	spec := sampleSpec()
	spec.MultiVariant = true

	for _, kind := range []entities.StageKind{entities.StageCampaign, entities.StageAdSet, entities.StageCreative, entities.StageAd} {
		form := params.Form{Spec: spec, CampaignID: "c1", AdSetID: "s1", CreativeID: "k1"}
		first, err := builder.Build(kind, "website", form, true)
		require.NoError(t, err)
		second, err := builder.Build(kind, "website", form, true)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(first, second), "kind %s", kind)
	}
}

func TestBuilderNeverSendsBlankFields(t *testing.T) {
	builder := params.NewBuilder(nil, params.Catalog{})
	variants, err := builder.AdSetParams(sampleSpec(), 0, "c1")
	require.NoError(t, err)
	require.Len(t, variants, 1)

	payload := variants[0].Payload
	require.Equal(t, "c1", payload["campaign_id"])
	require.NotContains(t, payload, "end_time")
	require.NotContains(t, payload, "lifetime_budget")
	require.NotContains(t, payload, "bid_amount")
}

func TestRegistryFallsBackForUnknownTags(t *testing.T) {
	registry := params.DefaultRegistry()

	strategy, matched := registry.Resolve("SOMETHING_NEW", "")
	require.False(t, matched)
	require.Equal(t, params.DefaultStrategyName, strategy.Name())

	strategy, matched = registry.Resolve("", "outcome-sales")
	require.True(t, matched)
	require.Equal(t, "website_conversions", strategy.Name())

	strategy, matched = registry.Resolve("website", "OUTCOME_SALES")
	require.True(t, matched, "destination type wins over objective")
	require.Equal(t, params.DefaultStrategyName, strategy.Name())
}

func TestBuildWithUnknownTagUsesDefaultStrategy(t *testing.T) {
	builder := params.NewBuilder(nil, params.Catalog{})
	spec := sampleSpec()

	unknown, err := builder.Build(entities.StageCampaign, "no-such-tag", params.Form{Spec: spec}, false)
	require.NoError(t, err)
	fallback, err := builder.Build(entities.StageCampaign, params.DefaultStrategyName, params.Form{Spec: spec}, false)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(fallback, unknown))
}

func TestMultiVariantLayersDeltasOnBase(t *testing.T) {
	builder := params.NewBuilder(nil, params.DefaultCatalog())
	spec := sampleSpec()
	spec.MultiVariant = true

	variants, err := builder.AdSetParams(spec, 0, "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"broad", "high-intent", "control"}, []string{variants[0].Label, variants[1].Label, variants[2].Label})

	broad := variants[0].Payload
	require.Equal(t, "Core - Broad", broad["name"])
	targeting := broad["targeting"].(params.Payload)
	require.Equal(t, 18, targeting["age_min"])
	require.NotContains(t, targeting, "interests")

	require.Equal(t, int64(2500), variants[1].Payload["daily_budget"])
	require.Equal(t, int64(1000), variants[2].Payload["daily_budget"])

	base, err := builder.AdSetParams(sampleSpec(), 0, "c1")
	require.NoError(t, err)
	require.Equal(t, int64(2000), base[0].Payload["daily_budget"], "variants must not leak into the base payload")
}

func TestSpecVariantsOverrideCatalogLabels(t *testing.T) {
	builder := params.NewBuilder(nil, params.DefaultCatalog())
	spec := sampleSpec()
	spec.MultiVariant = true
	spec.Variants = []string{"control", "lookalike"}

	require.Equal(t, []string{"control", "lookalike"}, builder.VariantLabels(spec))

	variants, err := builder.AdSetParams(spec, 0, "c1")
	require.NoError(t, err)
	require.Equal(t, "Core - lookalike", variants[1].Payload["name"])
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := params.LoadCatalog([]byte(`
http_port: "9090"
variants:
  - label: wide
    name_suffix: Wide
    budget_multiplier: 2
  - label: narrow
    age_min: 30
`))
	require.NoError(t, err)
	require.Equal(t, []string{"wide", "narrow"}, catalog.Labels())

	empty, err := params.LoadCatalog(nil)
	require.NoError(t, err)
	require.Equal(t, params.DefaultCatalog().Labels(), empty.Labels())

	_, err = params.LoadCatalog([]byte("variants:\n  - label: a\n  - label: a\n"))
	require.Error(t, err)

	_, err = params.LoadCatalog([]byte("variants:\n  - name_suffix: x\n"))
	require.Error(t, err)
}

func TestOutOfRangeIndexesAreErrors(t *testing.T) {
	builder := params.NewBuilder(nil, params.Catalog{})
	_, err := builder.AdSetParams(sampleSpec(), 3, "c1")
	require.ErrorIs(t, err, params.ErrOutOfRange)
	_, err = builder.CreativeParams(sampleSpec(), 0, 9)
	require.ErrorIs(t, err, params.ErrOutOfRange)
}
