package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

// webQueryTemplates are issued in this order; the order biases what the
// synthesizer reads first.
var webQueryTemplates = []string{
	"care instructions for %s",
	"scientific name and common name for %s",
	"ideal temperature and lighting for %s",
	"common diseases and pests for %s",
	"ideal soil type for %s",
}

// WebQueries renders the fixed search queries for a species label.
func WebQueries(species string) []string {
	out := make([]string, 0, len(webQueryTemplates))
	for _, tmpl := range webQueryTemplates {
		out = append(out, fmt.Sprintf(tmpl, species))
	}
	return out
}

const synthesisSystemPrompt = `You are a botanical research assistant preparing a care card for a single plant.
You receive two sources: internal knowledge that you trust, and search results from the internet.

Your only task is to extract facts from these sources into the PlantCareCard JSON schema.
Return the JSON object and nothing else. Do not invent facts.
When the sources disagree, the internal knowledge wins.
Fill gaps from the internal knowledge when it is relevant.
If a value is still missing, use null where the schema allows it (vase_type), or infer a sensible default
such as "Standard pot" for vase_type when the plant is a common houseplant.
Express watering_frequency as times per day or per week, for example "3x/week".

Internal knowledge:
%s

Search results:
%s
`

const synthesisUserPrompt = "Generate the PlantCareCard from the information above."

func buildSynthesisMessages(internalKnowledge, webKnowledge string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{
			Role:    domain.RoleSystem,
			Content: fmt.Sprintf(synthesisSystemPrompt, orNone(internalKnowledge), orNone(webKnowledge)),
		},
		{Role: domain.RoleUser, Content: synthesisUserPrompt},
	}
}

const articleSystemPrompt = `You are a friendly, knowledgeable gardening expert. You have received a structured care card
(PlantCareCard) with the key facts about one plant.

Write a warm, engaging and helpful article for a beginner gardener using only this card.
Open with a welcome and introduce the plant by its common name and its latin name.
Weave the care instructions (temperature, lighting, watering, soil) into an easy-to-read guide.
List every disease from the card that the reader should watch out for.
Keep the tone encouraging and fun.

Formatting rules:
- use markdown titles and subtitles (# and ##)
- use bulleted or ordered lists where they help
- bold the important words with **
- keep paragraphs short and well spaced
%s
Care card:
%s
`

const noVaseInstruction = "- the card names no vase type: do not state or recommend any specific vase or container as fact\n"

func buildArticleMessages(record domain.CareRecord) ([]domain.ChatMessage, error) {
	card, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal care record: %w", err)
	}

	extra := ""
	if !record.HasVaseType() {
		extra = noVaseInstruction
	}
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: fmt.Sprintf(articleSystemPrompt, extra, card)},
	}, nil
}

func orNone(text string) string {
	if strings.TrimSpace(text) == "" {
		return "(none)"
	}
	return text
}
