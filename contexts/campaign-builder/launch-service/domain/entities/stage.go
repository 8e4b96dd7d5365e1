package entities

type StageKind string

const (
	StageCampaign StageKind = "campaign"
	StageAdSet    StageKind = "adset"
	StageCreative StageKind = "creative"
	StageAd       StageKind = "ad"
)

// StageOrder is the dependency chain. A stage only starts once every
// sibling of the previous stage has succeeded.
var StageOrder = []StageKind{StageCampaign, StageAdSet, StageCreative, StageAd}

// RemotePath is the collection under the ad account each kind is created in.
func (k StageKind) RemotePath() string {
	switch k {
	case StageCampaign:
		return "campaigns"
	case StageAdSet:
		return "adsets"
	case StageCreative:
		return "adcreatives"
	case StageAd:
		return "ads"
	default:
		return string(k)
	}
}

// StageResult is the in-memory outcome of one entity attempt.
type StageResult struct {
	Stage    StageKind
	Step     string
	RemoteID string
	Err      error
	Skipped  bool
}

func (r StageResult) Succeeded() bool {
	return r.Err == nil && !r.Skipped && r.RemoteID != ""
}
