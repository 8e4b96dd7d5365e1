package params

import (
	"strings"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
)

const remoteStatusPaused = "PAUSED"

// Strategy builds the per-entity payloads for one destination/objective.
// Implementations must be pure: identical inputs give identical payloads.
type Strategy interface {
	Name() string
	Tags() []string
	Campaign(spec entities.CampaignSpecification) Payload
	AdSet(in entities.AdSetInput, campaignID string) Payload
	Creative(in entities.CreativeInput, adSet entities.AdSetInput) Payload
	Ad(in entities.CreativeInput, adSetID string, creativeID string) Payload
}

// destinationStrategy is the shared shape of every built-in strategy; each
// registered value differs only in its defaults and promoted object.
type destinationStrategy struct {
	name             string
	tags             []string
	objective        string
	destinationType  string
	optimizationGoal string
	billingEvent     string
	callToAction     string
	promotedObject   func(in entities.AdSetInput) Payload
	callToActionLink func(creative entities.CreativeInput, adSet entities.AdSetInput) Payload
}

func (s destinationStrategy) Name() string {
	return s.name
}

func (s destinationStrategy) Tags() []string {
	return append([]string(nil), s.tags...)
}

func (s destinationStrategy) Campaign(spec entities.CampaignSpecification) Payload {
	objective := strings.ToUpper(spec.ObjectiveTag())
	if !strings.HasPrefix(objective, "OUTCOME_") {
		objective = s.objective
	}
	categories := spec.Campaign.SpecialAdCategories
	if len(categories) == 0 {
		categories = []string{"NONE"}
	}
	return Strip(Payload{
		"name":                  strings.TrimSpace(spec.Campaign.Name),
		"objective":             objective,
		"status":                remoteStatusPaused,
		"buying_type":           spec.Campaign.BuyingType,
		"bid_strategy":          spec.Campaign.BidStrategy,
		"daily_budget":          spec.Campaign.DailyBudget,
		"lifetime_budget":       spec.Campaign.LifetimeBudget,
		"spend_cap":             spec.Campaign.SpendCap,
		"special_ad_categories": append([]string(nil), categories...),
	})
}

func (s destinationStrategy) AdSet(in entities.AdSetInput, campaignID string) Payload {
	payload := Payload{
		"name":              strings.TrimSpace(in.AdSetName),
		"campaign_id":       campaignID,
		"status":            remoteStatusPaused,
		"daily_budget":      in.DailyBudget,
		"lifetime_budget":   in.LifetimeBudget,
		"bid_amount":        in.BidAmount,
		"billing_event":     firstNonBlank(in.BillingEvent, s.billingEvent),
		"optimization_goal": firstNonBlank(in.OptimizationGoal, s.optimizationGoal),
		"destination_type":  s.destinationType,
		"start_time":        in.Schedule.StartTime,
		"end_time":          in.Schedule.EndTime,
		"targeting":         targetingPayload(in.Targeting),
	}
	if s.promotedObject != nil {
		payload["promoted_object"] = s.promotedObject(in)
	}
	return Strip(payload)
}

func (s destinationStrategy) Creative(in entities.CreativeInput, adSet entities.AdSetInput) Payload {
	callToAction := Payload{
		"type": firstNonBlank(in.CallToAction, s.callToAction),
	}
	if s.callToActionLink != nil {
		callToAction["value"] = s.callToActionLink(in, adSet)
	} else {
		callToAction["value"] = Payload{"link": in.LinkURL}
	}

	story := Payload{
		"page_id":            firstNonBlank(in.PageID, adSet.PageID),
		"instagram_actor_id": in.InstagramID,
	}
	if strings.TrimSpace(in.VideoID) != "" {
		story["video_data"] = Payload{
			"video_id":         in.VideoID,
			"message":          in.Message,
			"title":            in.Headline,
			"link_description": in.Description,
			"image_url":        in.ImageURL,
			"image_hash":       in.ImageHash,
			"call_to_action":   callToAction,
		}
	} else {
		story["link_data"] = Payload{
			"message":        in.Message,
			"link":           in.LinkURL,
			"name":           in.Headline,
			"description":    in.Description,
			"caption":        in.DisplayLink,
			"image_hash":     in.ImageHash,
			"picture":        in.ImageURL,
			"call_to_action": callToAction,
		}
	}
	return Strip(Payload{
		"name":              strings.TrimSpace(in.Name),
		"object_story_spec": story,
		"url_tags":          in.URLTags,
	})
}

func (s destinationStrategy) Ad(in entities.CreativeInput, adSetID string, creativeID string) Payload {
	return Strip(Payload{
		"name":     firstNonBlank(in.AdName, in.Name),
		"adset_id": adSetID,
		"creative": Payload{"creative_id": creativeID},
		"status":   remoteStatusPaused,
	})
}

func targetingPayload(in entities.Targeting) Payload {
	cities := make([]Payload, 0, len(in.Cities))
	for _, city := range in.Cities {
		cities = append(cities, Payload{"key": city})
	}
	interests := make([]Payload, 0, len(in.Interests))
	for _, interest := range in.Interests {
		interests = append(interests, Payload{"id": interest})
	}
	audiences := make([]Payload, 0, len(in.CustomAudiences))
	for _, audience := range in.CustomAudiences {
		audiences = append(audiences, Payload{"id": audience})
	}
	return Payload{
		"geo_locations": Payload{
			"countries": append([]string(nil), in.Countries...),
			"cities":    cities,
		},
		"age_min":             in.AgeMin,
		"age_max":             in.AgeMax,
		"genders":             append([]int(nil), in.Genders...),
		"interests":           interests,
		"custom_audiences":    audiences,
		"publisher_platforms": append([]string(nil), in.Placements...),
	}
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
