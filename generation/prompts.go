package generation

import (
	"fmt"
	"strings"

	"github.com/poiesic/brandmem/core"
)

// maxToneInput bounds the page text sent for tone analysis, in runes.
const maxToneInput = 12000

// noContext is written in place of retrieved memories when there are none.
const noContext = "No stored brand knowledge is available. Rely on the brand identity above."

const jsonOnly = "Respond with a single JSON object and nothing else. Do not wrap it in markdown."

// platformGuidance holds per-platform writing constraints.
var platformGuidance = map[string]string{
	"twitter":   "Keep it under 280 characters including hashtags.",
	"x":         "Keep it under 280 characters including hashtags.",
	"linkedin":  "Professional register, 80 to 200 words, a clear takeaway in the first line.",
	"instagram": "Conversational caption, up to 150 words, up to 8 hashtags.",
	"facebook":  "Friendly, 40 to 120 words, end with a question or call to action.",
	"tiktok":    "A punchy hook line followed by at most 3 short sentences.",
}

// writeBrand renders the brand identity block.
func writeBrand(b *strings.Builder, brand *core.Brand) {
	b.WriteString("## Brand\n")
	name := strings.TrimSpace(brand.Name)
	if name == "" {
		name = "(unnamed brand)"
	}
	fmt.Fprintf(b, "Name: %s\n", name)
	if brand.Website != "" {
		fmt.Fprintf(b, "Website: %s\n", brand.Website)
	}
	if tone := brand.Tone.String(); tone != "" {
		fmt.Fprintf(b, "Voice: %s\n", tone)
	}
	if brand.Audience != "" {
		fmt.Fprintf(b, "Audience: %s\n", brand.Audience)
	}
	if len(brand.Values) > 0 {
		fmt.Fprintf(b, "Values: %s\n", strings.Join(brand.Values, ", "))
	}
	b.WriteByte('\n')
}

// writeContext renders retrieved memories, most relevant first.
func writeContext(b *strings.Builder, results []*core.SearchResult) {
	b.WriteString("## Brand knowledge\n")
	if len(results) == 0 {
		b.WriteString(noContext)
		b.WriteString("\n\n")
		return
	}
	for i, r := range results {
		fmt.Fprintf(b, "[%d] %s\n", i+1, strings.TrimSpace(r.Memory.Content))
	}
	b.WriteByte('\n')
}

func campaignPrompt(brand *core.Brand, memories []*core.SearchResult, goal string, window core.DateRange) string {
	var b strings.Builder
	b.WriteString("You are a social media strategist planning a campaign for the brand below.\n\n")
	writeBrand(&b, brand)
	writeContext(&b, memories)

	b.WriteString("## Task\n")
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	fmt.Fprintf(&b, "Window: %s to %s (%d days)\n",
		window.Start.Format(dateLayout), window.End.Format(dateLayout), window.Days())
	b.WriteString("Plan one post per day on the most suitable platform. Dates must fall inside the window.\n\n")

	b.WriteString(jsonOnly)
	b.WriteString("\nShape:\n")
	b.WriteString(`{"title": string, "summary": string, "posts": [{"date": "YYYY-MM-DD", "platform": string, "topic": string, "caption": string, "hashtags": [string]}]}`)
	b.WriteByte('\n')
	return b.String()
}

func contentPrompt(brand *core.Brand, memories []*core.SearchResult, topic, platform string) string {
	var b strings.Builder
	b.WriteString("You are a copywriter writing one social media post in the brand's voice.\n\n")
	writeBrand(&b, brand)
	writeContext(&b, memories)

	b.WriteString("## Task\n")
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Platform: %s\n", platform)
	if guidance, ok := platformGuidance[platform]; ok {
		b.WriteString(guidance)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	b.WriteString(jsonOnly)
	b.WriteString("\nShape:\n")
	b.WriteString(`{"content": string, "hashtags": [string]}`)
	b.WriteByte('\n')
	return b.String()
}

func tonePrompt(url, text string) string {
	var b strings.Builder
	b.WriteString("You are a brand strategist. Describe the voice of the website text below.\n\n")
	fmt.Fprintf(&b, "## Source\n%s\n\n", url)
	b.WriteString("## Text\n")
	b.WriteString(truncateRunes(text, maxToneInput))
	b.WriteString("\n\n")

	b.WriteString(jsonOnly)
	b.WriteString("\nShape:\n")
	b.WriteString(`{"tone": string, "adjectives": [string], "description": string, "archetype": string}`)
	b.WriteString("\nThe archetype is one of the twelve classic brand archetypes, e.g. Sage, Hero, Caregiver.\n")
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
