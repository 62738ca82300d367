package generation

import (
	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
)

// dateLayout is the day format used in prompts and plans.
const dateLayout = "2006-01-02"

// CampaignResult is the outcome of GenerateCampaign.
type CampaignResult struct {
	// CampaignID is uuid.Nil if the plan could not be persisted.
	CampaignID       uuid.UUID         `json:"campaign_id"`
	Plan             core.CampaignPlan `json:"plan"`
	Generator        string            `json:"generator"`
	CreditsRemaining int               `json:"credits_remaining"`
}

// ContentResult is the outcome of GenerateContent.
type ContentResult struct {
	Content          string   `json:"content"`
	Hashtags         []string `json:"hashtags"`
	Generator        string   `json:"generator"`
	CreditsRemaining int      `json:"credits_remaining"`
}

// ToneResult is the outcome of AnalyzeTone.
type ToneResult struct {
	Tone        string   `json:"tone"`
	Adjectives  []string `json:"adjectives"`
	Description string   `json:"description"`
	Archetype   string   `json:"archetype"`
	Generator   string   `json:"generator"`

	// CreditsRemaining is -1 for anonymous analyses.
	CreditsRemaining int `json:"credits_remaining"`
}

// contentResponse is the JSON shape requested by the content prompt.
type contentResponse struct {
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

// toneResponse is the JSON shape requested by the tone prompt. Adjectives
// are accepted as a list or a comma separated string.
type toneResponse struct {
	Tone        string          `json:"tone"`
	Adjectives  flexibleStrings `json:"adjectives"`
	Description string          `json:"description"`
	Archetype   string          `json:"archetype"`
}
