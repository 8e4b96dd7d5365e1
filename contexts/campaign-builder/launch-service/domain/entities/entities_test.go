package entities

import (
	"testing"
	"time"
)

func TestApplyPatchKeepsPercentMonotonic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := Job{JobID: "job-1", Status: JobStatusRunning, Percent: 40}

	job = ApplyPatch(job, JobPatch{}.WithPercent(25).WithStep("adset"), now)
	if job.Percent != 40 {
		t.Fatalf("expected percent to stay at 40, got %d", job.Percent)
	}
	if job.Step != "adset" {
		t.Fatalf("expected step adset, got %q", job.Step)
	}

	job = ApplyPatch(job, JobPatch{}.WithPercent(250), now)
	if job.Percent != 100 {
		t.Fatalf("expected percent clamped to 100, got %d", job.Percent)
	}
	if !job.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated_at %v, got %v", now, job.UpdatedAt)
	}
}

func TestApplyPatchFreezesTerminalJobs(t *testing.T) {
	job := Job{JobID: "job-1", Status: JobStatusDone, Percent: 100, Step: "done"}
	next := ApplyPatch(job, JobPatch{}.WithStatus(JobStatusRunning).WithStep("campaign"), time.Now())
	if next.Status != JobStatusDone || next.Step != "done" {
		t.Fatalf("expected terminal job untouched, got %+v", next)
	}
}

func TestSortEventsByCreatedAtThenSeq(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []ProgressEvent{
		{EventID: "c", Seq: 3, CreatedAt: base.Add(time.Second)},
		{EventID: "b", Seq: 2, CreatedAt: base},
		{EventID: "a", Seq: 1, CreatedAt: base},
		{EventID: "d", Seq: 4, CreatedAt: base.Add(-time.Second)},
	}
	SortEvents(items)

	got := ""
	for _, item := range items {
		got += item.EventID
	}
	if got != "dabc" {
		t.Fatalf("expected order dabc, got %s", got)
	}
}

func TestOpenStepsReportsUnfinishedLoading(t *testing.T) {
	items := []ProgressEvent{
		{Step: "campaign", Status: EventStatusLoading},
		{Step: "campaign", Status: EventStatusSuccess},
		{Step: "adset:0", Status: EventStatusLoading},
		{Step: "adset:1", Status: EventStatusLoading},
		{Step: "adset:1", Status: EventStatusError},
	}
	open := OpenSteps(items)
	if len(open) != 1 || open[0] != "adset:0" {
		t.Fatalf("expected [adset:0], got %v", open)
	}
}

func TestValidateSpecification(t *testing.T) {
	valid := CampaignSpecification{
		AdAccountID: "123",
		Campaign:    CampaignInput{Name: "Launch"},
		AdSets: []AdSetInput{{
			AdSetName: "Core",
			Creatives: []CreativeInput{{Name: "Hero"}},
		}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid specification, got %v", err)
	}
	if valid.AccountPath() != "act_123" {
		t.Fatalf("expected act_ prefix, got %q", valid.AccountPath())
	}

	cases := map[string]func(*CampaignSpecification){
		"missing account":  func(s *CampaignSpecification) { s.AdAccountID = " " },
		"missing name":     func(s *CampaignSpecification) { s.Campaign.Name = "" },
		"no ad sets":       func(s *CampaignSpecification) { s.AdSets = nil },
		"no creatives":     func(s *CampaignSpecification) { s.AdSets = []AdSetInput{{AdSetName: "Core"}} },
		"unnamed creative": func(s *CampaignSpecification) { s.AdSets = []AdSetInput{{AdSetName: "Core", Creatives: []CreativeInput{{}}}} },
		"repeated variant": func(s *CampaignSpecification) { s.MultiVariant, s.Variants = true, []string{"broad", "broad"} },
		"variant case":     func(s *CampaignSpecification) { s.MultiVariant, s.Variants = true, []string{"broad", " Broad "} },
		"blank variant":    func(s *CampaignSpecification) { s.MultiVariant, s.Variants = true, []string{"broad", "  "} },
	}
	for name, mutate := range cases {
		spec := valid
		spec.AdSets = append([]AdSetInput(nil), valid.AdSets...)
		mutate(&spec)
		if err := spec.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateAcceptsDistinctVariants(t *testing.T) {
	spec := CampaignSpecification{
		AdAccountID:  "123",
		MultiVariant: true,
		Variants:     []string{"broad", "control", "lookalike"},
		Campaign:     CampaignInput{Name: "Launch"},
		AdSets:       []AdSetInput{{AdSetName: "Core", Creatives: []CreativeInput{{Name: "Hero"}}}},
	}
	if err := spec.Validate(); err != nil {
		t.Fatalf("expected distinct variants accepted, got %v", err)
	}
}

func TestDestinationTagPrefersAdSet(t *testing.T) {
	spec := CampaignSpecification{
		DestinationType: "WEBSITE",
		AdSets:          []AdSetInput{{DestinationType: "ON_AD"}, {}},
	}
	if spec.DestinationTag(0) != "ON_AD" {
		t.Fatalf("expected ad-set destination, got %q", spec.DestinationTag(0))
	}
	if spec.DestinationTag(1) != "WEBSITE" {
		t.Fatalf("expected specification destination, got %q", spec.DestinationTag(1))
	}
}
