package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ContentHash is a 64-bit digest of chunk text used for exact-match dedup.
type ContentHash uint64

// HashContent generates a deterministic hash from text content using BLAKE2b hashing.
// Byte-identical text always produces the same hash.
func HashContent(text string) ContentHash {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ContentHash(binary.LittleEndian.Uint64(sum))
}

// SourceType identifies where a memory's text came from.
type SourceType string

const (
	// SourceTypeWebsite marks chunks crawled from a tenant's site.
	SourceTypeWebsite SourceType = "website"
	// SourceTypeDocument marks chunks seeded from local documents.
	SourceTypeDocument SourceType = "document"
	// SourceTypeToneAnalysis marks chunks stored as a side effect of tone analysis.
	SourceTypeToneAnalysis SourceType = "tone_analysis"
)

// Capability names a metered operation.
type Capability string

const (
	CapabilityScan     Capability = "scan"
	CapabilityCampaign Capability = "campaign"
	CapabilityContent  Capability = "content"
	CapabilityTone     Capability = "tone"
)

// Capabilities lists every metered capability.
var Capabilities = []Capability{
	CapabilityScan,
	CapabilityCampaign,
	CapabilityContent,
	CapabilityTone,
}

// DefaultCreditAllowance is provisioned the first time a (tenant, capability) pair is read.
const DefaultCreditAllowance = 3

// Profile is the owning user's row. Brands reference it by OwnerID.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Brand is the tenant: the scoping identity that owns memories, credits and artifacts.
// There is at most one brand per owner.
type Brand struct {
	ID        uuid.UUID      `json:"id"`
	OwnerID   uuid.UUID      `json:"owner_id"`
	Name      string         `json:"name"`
	Website   string         `json:"website,omitempty"`
	Tone      ToneDescriptor `json:"tone"`
	Audience  string         `json:"audience,omitempty"`
	Values    []string       `json:"values,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MemoryMetadata records provenance for a memory.
type MemoryMetadata struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// Memory is a chunk of tenant text plus its embedding. Memories are append-only.
type Memory struct {
	ID         uuid.UUID      `json:"id"`
	TenantID   uuid.UUID      `json:"tenant_id"`
	Content    string         `json:"content"`
	Vector     []float32      `json:"vector"`
	SourceType SourceType     `json:"source_type"`
	Metadata   MemoryMetadata `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SearchResult represents a memory match with its cosine similarity.
type SearchResult struct {
	Memory *Memory
	Score  float32
}

// CreditBalance is one credit ledger entry.
type CreditBalance struct {
	TenantID   uuid.UUID  `json:"tenant_id"`
	Capability Capability `json:"capability"`
	Remaining  int        `json:"remaining"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DateRange is an inclusive campaign window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of calendar days covered by the range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// PlannedPost is one entry of a campaign plan.
type PlannedPost struct {
	Date     string   `json:"date"`
	Platform string   `json:"platform"`
	Topic    string   `json:"topic"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// CampaignPlan is the structured output of campaign generation.
type CampaignPlan struct {
	Title   string        `json:"title"`
	Summary string        `json:"summary"`
	Posts   []PlannedPost `json:"posts"`
}

// Campaign is a persisted campaign plan.
type Campaign struct {
	ID        uuid.UUID    `json:"id"`
	TenantID  uuid.UUID    `json:"tenant_id"`
	Goal      string       `json:"goal"`
	Range     DateRange    `json:"range"`
	Plan      CampaignPlan `json:"plan"`
	CreatedAt time.Time    `json:"created_at"`
}

// ContentPiece is a persisted single social post.
type ContentPiece struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Topic     string    `json:"topic"`
	Platform  string    `json:"platform"`
	Content   string    `json:"content"`
	Hashtags  []string  `json:"hashtags"`
	CreatedAt time.Time `json:"created_at"`
}

// ToneProfile is a persisted voice analysis of a URL.
// TenantID is uuid.Nil for anonymous analyses, which are never persisted.
type ToneProfile struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	URL         string    `json:"url"`
	Tone        string    `json:"tone"`
	Adjectives  []string  `json:"adjectives"`
	Description string    `json:"description"`
	Archetype   string    `json:"archetype"`
	CreatedAt   time.Time `json:"created_at"`
}

// Descriptor converts the analysis into the structured tone variant stored on a Brand.
func (p *ToneProfile) Descriptor() ToneDescriptor {
	return NewStructuredTone(StructuredTone{
		Archetype:  p.Archetype,
		Tone:       p.Tone,
		Style:      p.Description,
		Adjectives: p.Adjectives,
	})
}
