package graph

import (
	"testing"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"

	"github.com/google/go-cmp/cmp"
)

func twoByTwo() entities.CampaignSpecification {
	return entities.CampaignSpecification{
		AdAccountID: "act_1",
		Campaign:    entities.CampaignInput{Name: "Spring"},
		AdSets: []entities.AdSetInput{
			{AdSetName: "A", Creatives: []entities.CreativeInput{{Name: "a1"}, {Name: "a2", AdName: "a2 ad"}}},
			{AdSetName: "B", Creatives: []entities.CreativeInput{{Name: "b1"}}},
		},
	}
}

func TestBuildPlanSingleChainUsesBareStepNames(t *testing.T) {
	spec := entities.CampaignSpecification{
		Campaign: entities.CampaignInput{Name: "Solo"},
		AdSets: []entities.AdSetInput{
			{AdSetName: "Only", Creatives: []entities.CreativeInput{{Name: "hero"}}},
		},
	}

	plan := BuildPlan(spec, nil)

	want := []string{"campaign", "adset", "creative", "ad"}
	if diff := cmp.Diff(want, plan.Steps()); diff != "" {
		t.Fatalf("unexpected steps (-want +got):\n%s", diff)
	}
	ad := plan.Stages[3].Units[0]
	if diff := cmp.Diff([]string{"adset", "creative"}, ad.DependsOn); diff != "" {
		t.Fatalf("unexpected ad dependencies (-want +got):\n%s", diff)
	}
}

func TestBuildPlanIndexesSiblings(t *testing.T) {
	plan := BuildPlan(twoByTwo(), nil)

	if plan.Total() != 1+2+3+3 {
		t.Fatalf("expected 9 units, got %d", plan.Total())
	}
	want := []string{
		"campaign",
		"adset:0", "adset:1",
		"creative:0.0", "creative:0.1", "creative:1.0",
		"ad:0.0", "ad:0.1", "ad:1.0",
	}
	if diff := cmp.Diff(want, plan.Steps()); diff != "" {
		t.Fatalf("unexpected steps (-want +got):\n%s", diff)
	}
	second := plan.Stages[3].Units[1]
	if second.Name != "a2 ad" {
		t.Fatalf("expected ad name to prefer adName, got %q", second.Name)
	}
	if diff := cmp.Diff([]string{"adset:0", "creative:0.1"}, second.DependsOn); diff != "" {
		t.Fatalf("unexpected dependencies (-want +got):\n%s", diff)
	}
}

func TestBuildPlanFansOutVariants(t *testing.T) {
	spec := twoByTwo()
	spec.AdSets = spec.AdSets[:1]
	spec.AdSets[0].Creatives = spec.AdSets[0].Creatives[:1]

	plan := BuildPlan(spec, []string{"broad", "control"})

	want := []string{
		"campaign",
		"adset:0@broad", "adset:0@control",
		"creative",
		"ad:0.0@broad", "ad:0.0@control",
	}
	if diff := cmp.Diff(want, plan.Steps()); diff != "" {
		t.Fatalf("unexpected steps (-want +got):\n%s", diff)
	}
	control := plan.Stages[3].Units[1]
	if diff := cmp.Diff([]string{"adset:0@control", "creative"}, control.DependsOn); diff != "" {
		t.Fatalf("unexpected dependencies (-want +got):\n%s", diff)
	}
	if plan.Stages[1].Units[0].Name != "A (broad)" {
		t.Fatalf("expected variant name, got %q", plan.Stages[1].Units[0].Name)
	}
}

func TestVisualizeLinksDependencies(t *testing.T) {
	nodes, edges := Visualize(BuildPlan(twoByTwo(), nil))

	if len(nodes) != 9 {
		t.Fatalf("expected 9 nodes, got %d", len(nodes))
	}
	if nodes[0] != (Node{ID: "campaign", Type: "campaign", Label: "Spring"}) {
		t.Fatalf("unexpected root node %+v", nodes[0])
	}
	// 2 adsets + 3 creatives hang off the campaign, each of 3 ads has 2 parents
	if len(edges) != 2+3+3*2 {
		t.Fatalf("expected 11 edges, got %d", len(edges))
	}
	for _, edge := range edges {
		if edge.ID != "e-"+edge.Source+"-"+edge.Target {
			t.Fatalf("unexpected edge id %q", edge.ID)
		}
	}
}
