package graph

import (
	"fmt"
	"strings"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
)

// Unit is one entity creation the pipeline will attempt. Step is the name
// its progress events carry.
type Unit struct {
	Kind          entities.StageKind
	Step          string
	Name          string
	AdSetIndex    int
	CreativeIndex int
	Variant       string
	DependsOn     []string
}

type Stage struct {
	Kind  entities.StageKind
	Units []Unit
}

// Plan is the ordered stage list derived from one specification.
type Plan struct {
	Stages []Stage
}

func (p Plan) Total() int {
	total := 0
	for _, stage := range p.Stages {
		total += len(stage.Units)
	}
	return total
}

// Steps lists every step name in execution order.
func (p Plan) Steps() []string {
	steps := make([]string, 0, p.Total())
	for _, stage := range p.Stages {
		for _, unit := range stage.Units {
			steps = append(steps, unit.Step)
		}
	}
	return steps
}

// BuildPlan expands spec into stage units. variants is the label list of a
// multi-variant launch and is empty otherwise. A stage with a single unit
// uses the bare kind as its step name.
func BuildPlan(spec entities.CampaignSpecification, variants []string) Plan {
	if len(variants) == 0 {
		variants = []string{""}
	}

	campaign := Unit{
		Kind: entities.StageCampaign,
		Step: string(entities.StageCampaign),
		Name: strings.TrimSpace(spec.Campaign.Name),
	}

	adSetUnits := make([]Unit, 0, len(spec.AdSets)*len(variants))
	creativeUnits := make([]Unit, 0)
	adUnits := make([]Unit, 0)
	for i, adSet := range spec.AdSets {
		for _, variant := range variants {
			adSetUnits = append(adSetUnits, Unit{
				Kind:       entities.StageAdSet,
				Step:       fmt.Sprintf("adset:%d%s", i, variantSuffix(variant)),
				Name:       variantName(adSet.AdSetName, variant),
				AdSetIndex: i,
				Variant:    variant,
				DependsOn:  []string{campaign.Step},
			})
		}
		for j, creative := range adSet.Creatives {
			creativeUnits = append(creativeUnits, Unit{
				Kind:          entities.StageCreative,
				Step:          fmt.Sprintf("creative:%d.%d", i, j),
				Name:          strings.TrimSpace(creative.Name),
				AdSetIndex:    i,
				CreativeIndex: j,
				DependsOn:     []string{campaign.Step},
			})
			for _, variant := range variants {
				adUnits = append(adUnits, Unit{
					Kind:          entities.StageAd,
					Step:          fmt.Sprintf("ad:%d.%d%s", i, j, variantSuffix(variant)),
					Name:          variantName(firstNonBlank(creative.AdName, creative.Name), variant),
					AdSetIndex:    i,
					CreativeIndex: j,
					Variant:       variant,
				})
			}
		}
	}

	collapseSingle(adSetUnits, entities.StageAdSet)
	collapseSingle(creativeUnits, entities.StageCreative)
	collapseSingle(adUnits, entities.StageAd)

	adSetSteps := make(map[string]string, len(adSetUnits))
	for _, unit := range adSetUnits {
		adSetSteps[unitKey(unit.AdSetIndex, unit.Variant)] = unit.Step
	}
	creativeSteps := make(map[string]string, len(creativeUnits))
	for _, unit := range creativeUnits {
		creativeSteps[fmt.Sprintf("%d.%d", unit.AdSetIndex, unit.CreativeIndex)] = unit.Step
	}
	for k := range adUnits {
		unit := &adUnits[k]
		unit.DependsOn = []string{
			adSetSteps[unitKey(unit.AdSetIndex, unit.Variant)],
			creativeSteps[fmt.Sprintf("%d.%d", unit.AdSetIndex, unit.CreativeIndex)],
		}
	}

	return Plan{Stages: []Stage{
		{Kind: entities.StageCampaign, Units: []Unit{campaign}},
		{Kind: entities.StageAdSet, Units: adSetUnits},
		{Kind: entities.StageCreative, Units: creativeUnits},
		{Kind: entities.StageAd, Units: adUnits},
	}}
}

func collapseSingle(units []Unit, kind entities.StageKind) {
	if len(units) == 1 {
		units[0].Step = string(kind)
	}
}

func unitKey(adSetIndex int, variant string) string {
	return fmt.Sprintf("%d|%s", adSetIndex, variant)
}

func variantSuffix(variant string) string {
	if variant == "" {
		return ""
	}
	return "@" + variant
}

func variantName(name string, variant string) string {
	name = strings.TrimSpace(name)
	if variant == "" {
		return name
	}
	return name + " (" + variant + ")"
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
