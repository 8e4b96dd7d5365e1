package entities

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CampaignSpecification is the builder output a launch job consumes. It is
// the same document a draft stores in payload_json.
type CampaignSpecification struct {
	AdAccountID     string        `json:"adAccountId"`
	Objective       string        `json:"objective,omitempty"`
	DestinationType string        `json:"destinationType,omitempty"`
	MultiVariant    bool          `json:"multiVariant,omitempty"`
	Variants        []string      `json:"variants,omitempty"`
	Campaign        CampaignInput `json:"campaign"`
	AdSets          []AdSetInput  `json:"adSets"`
}

type CampaignInput struct {
	Name                string   `json:"name"`
	Objective           string   `json:"objective,omitempty"`
	BuyingType          string   `json:"buyingType,omitempty"`
	BidStrategy         string   `json:"bidStrategy,omitempty"`
	DailyBudget         int64    `json:"dailyBudget,omitempty"`
	LifetimeBudget      int64    `json:"lifetimeBudget,omitempty"`
	SpendCap            int64    `json:"spendCap,omitempty"`
	SpecialAdCategories []string `json:"specialAdCategories,omitempty"`
}

type AdSetInput struct {
	AdSetName        string          `json:"adSetName"`
	DestinationType  string          `json:"destinationType,omitempty"`
	DailyBudget      int64           `json:"dailyBudget,omitempty"`
	LifetimeBudget   int64           `json:"lifetimeBudget,omitempty"`
	BidAmount        int64           `json:"bidAmount,omitempty"`
	BillingEvent     string          `json:"billingEvent,omitempty"`
	OptimizationGoal string          `json:"optimizationGoal,omitempty"`
	PixelID          string          `json:"pixelId,omitempty"`
	CustomEvent      string          `json:"customEvent,omitempty"`
	PageID           string          `json:"pageId,omitempty"`
	ApplicationID    string          `json:"applicationId,omitempty"`
	StoreURL         string          `json:"storeUrl,omitempty"`
	LeadFormID       string          `json:"leadFormId,omitempty"`
	Schedule         Schedule        `json:"schedule"`
	Targeting        Targeting       `json:"targeting"`
	Creatives        []CreativeInput `json:"creatives"`
}

type Schedule struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

type Targeting struct {
	Countries       []string `json:"countries,omitempty"`
	Cities          []string `json:"cities,omitempty"`
	AgeMin          int      `json:"ageMin,omitempty"`
	AgeMax          int      `json:"ageMax,omitempty"`
	Genders         []int    `json:"genders,omitempty"`
	Interests       []string `json:"interests,omitempty"`
	CustomAudiences []string `json:"customAudiences,omitempty"`
	Placements      []string `json:"placements,omitempty"`
}

type CreativeInput struct {
	Name         string `json:"name"`
	AdName       string `json:"adName,omitempty"`
	PageID       string `json:"pageId,omitempty"`
	InstagramID  string `json:"instagramId,omitempty"`
	Message      string `json:"message,omitempty"`
	Headline     string `json:"headline,omitempty"`
	Description  string `json:"description,omitempty"`
	LinkURL      string `json:"linkUrl,omitempty"`
	DisplayLink  string `json:"displayLink,omitempty"`
	ImageHash    string `json:"imageHash,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	VideoID      string `json:"videoId,omitempty"`
	CallToAction string `json:"callToAction,omitempty"`
	URLTags      string `json:"urlTags,omitempty"`
}

func DecodeSpecification(raw []byte) (CampaignSpecification, error) {
	var spec CampaignSpecification
	if err := json.Unmarshal(raw, &spec); err != nil {
		return CampaignSpecification{}, fmt.Errorf("decode campaign specification: %w", err)
	}
	return spec, nil
}

// Validate checks the structural minimum a launch needs. Unknown objective or
// destination tags are not errors: strategy resolution falls back instead.
func (s CampaignSpecification) Validate() error {
	if strings.TrimSpace(s.AdAccountID) == "" {
		return fmt.Errorf("adAccountId is required")
	}
	if strings.TrimSpace(s.Campaign.Name) == "" {
		return fmt.Errorf("campaign.name is required")
	}
	if len(s.AdSets) == 0 {
		return fmt.Errorf("at least one ad set is required")
	}
	// each label becomes a step name suffix, so labels must be distinct
	seenVariants := make(map[string]struct{}, len(s.Variants))
	for i, variant := range s.Variants {
		label := strings.ToLower(strings.TrimSpace(variant))
		if label == "" {
			return fmt.Errorf("variants[%d] is blank", i)
		}
		if _, dup := seenVariants[label]; dup {
			return fmt.Errorf("variants[%d] %q is duplicated", i, strings.TrimSpace(variant))
		}
		seenVariants[label] = struct{}{}
	}
	for i, adSet := range s.AdSets {
		if strings.TrimSpace(adSet.AdSetName) == "" {
			return fmt.Errorf("adSets[%d].adSetName is required", i)
		}
		if len(adSet.Creatives) == 0 {
			return fmt.Errorf("adSets[%d] needs at least one creative", i)
		}
		for j, creative := range adSet.Creatives {
			if strings.TrimSpace(creative.Name) == "" {
				return fmt.Errorf("adSets[%d].creatives[%d].name is required", i, j)
			}
		}
	}
	return nil
}

// ObjectiveTag returns the campaign-level objective, preferring the
// specification field over the nested campaign one.
func (s CampaignSpecification) ObjectiveTag() string {
	if value := strings.TrimSpace(s.Objective); value != "" {
		return value
	}
	return strings.TrimSpace(s.Campaign.Objective)
}

// DestinationTag returns the discriminator for one ad set. Ad-set level
// destination wins over the specification default.
func (s CampaignSpecification) DestinationTag(adSetIndex int) string {
	if adSetIndex >= 0 && adSetIndex < len(s.AdSets) {
		if value := strings.TrimSpace(s.AdSets[adSetIndex].DestinationType); value != "" {
			return value
		}
	}
	return strings.TrimSpace(s.DestinationType)
}

func (s CampaignSpecification) AccountPath() string {
	account := strings.TrimSpace(s.AdAccountID)
	if strings.HasPrefix(account, "act_") {
		return account
	}
	return "act_" + account
}
