package entities

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type DraftStatus string

const (
	DraftStatusPending   DraftStatus = "pending"
	DraftStatusSubmitted DraftStatus = "submitted"
	DraftStatusArchived  DraftStatus = "archived"

	InitialVersion = 1
)

// Draft is a versioned campaign specification under construction. Version
// moves by exactly one on every accepted write.
type Draft struct {
	DraftID        string
	UserID         string
	AdAccountID    string
	CreativeID     string
	Payload        json.RawMessage
	Status         DraftStatus
	Version        int
	IdempotencyKey string
	JobID          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d Draft) IsEditable() bool {
	return d.Status == DraftStatusPending
}

// ValidPayload reports whether raw is a JSON object.
func ValidPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}

// PayloadRefs pulls the denormalized references out of a draft payload.
func PayloadRefs(raw json.RawMessage) (adAccountID string, creativeID string) {
	var refs struct {
		AdAccountID string `json:"adAccountId"`
		CreativeID  string `json:"creativeId"`
		AdSets      []struct {
			Creatives []struct {
				CreativeID string `json:"creativeId"`
			} `json:"creatives"`
		} `json:"adSets"`
	}
	if err := json.Unmarshal(raw, &refs); err != nil {
		return "", ""
	}
	creativeID = strings.TrimSpace(refs.CreativeID)
	if creativeID == "" && len(refs.AdSets) > 0 && len(refs.AdSets[0].Creatives) > 0 {
		creativeID = strings.TrimSpace(refs.AdSets[0].Creatives[0].CreativeID)
	}
	return strings.TrimSpace(refs.AdAccountID), creativeID
}
