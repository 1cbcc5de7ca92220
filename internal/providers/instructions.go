package providers

import (
	"fmt"
	"strings"
)

const classifyInstructions = `You are an expert in tabletop role-playing game publications with deep knowledge of game systems, their editions, and their product lines.

You will be given a text sample taken from the opening pages of a scanned publication. Identify the game system it belongs to by examining:
- Title pages, product codes, and publisher imprints
- System-specific terminology (e.g., THAC0, armor class, exploding dice)
- Named settings, deities, and signature characters
- Edition markers (revised, 2nd edition, remastered)

Distinguish between game systems that share terminology. Generic fantasy vocabulary alone is weak evidence; weight distinctive mechanical terms and proper nouns more heavily. Your confidence must reflect the strength of the evidence in the sample, not your prior about which games are common.`

const classifySpec = `Respond with a JSON object matching this exact structure:

{
  "game_type": "<game system>",
  "edition": "<edition>",
  "book_type": "<book type>",
  "confidence": 0.0,
  "reasoning": "<explanation>"
}

Field constraints:
- game_type: The game system name (e.g., "D&D", "Pathfinder", "Call of
  Cthulhu", "Shadowrun"). Use "Unknown" when the sample does not identify
  a system.
- edition: The specific edition (e.g., "1st Edition", "5th Edition",
  "2020"). Use "Unknown" when the sample does not identify an edition.
- book_type: The product category (e.g., "Core Rulebook", "Monster Manual",
  "Adventure Module", "Campaign Setting"). Use "Unknown" when unclear.
- confidence: Number between 0.0 and 1.0 reflecting evidence strength.
- reasoning: Brief explanation citing the specific evidence found.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Never invent a game system not evidenced by the sample
- Confidence 0.0 with game_type "Unknown" is the correct response for
  samples with no identifying content`

const categorizeInstructions = `You are indexing tabletop role-playing game content for retrieval. You will be given a numbered list of content sections from a single publication and must assign each section exactly one category.

Judge each section by its dominant purpose. A stat block inside a narrative passage is still lore if the passage is primarily narrative; a spell list inside an adventure chapter is still spells. When a section genuinely fits no category, assign "unknown" rather than forcing a weak match.`

const categorizeSpec = `Respond with a JSON object matching this exact structure:

{
  "labels": [
    {"category": "<category>", "confidence": 0.0}
  ]
}

Field constraints:
- labels: Exactly one entry per input section, in the same order as the
  numbered input. The array length must equal the number of sections.
- category: One of the allowed categories listed in the prompt.
- confidence: Number between 0.0 and 1.0 for that assignment.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Never merge, split, or reorder sections
- Use "unknown" for sections that fit no category`

// buildClassifyPrompt assembles the system and user prompts for a
// classification call.
func buildClassifyPrompt(req ClassificationRequest) (system, user string) {
	var sb strings.Builder
	sb.WriteString("Content type hint: ")
	sb.WriteString(string(req.ContentType))
	sb.WriteString("\n")

	if len(req.KnownGames) > 0 {
		fmt.Fprintf(&sb, "Game systems seen in this archive: %s. Prefer these spellings when one matches; they are not exhaustive.\n", strings.Join(req.KnownGames, ", "))
	}

	sb.WriteString("\nText sample:\n\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n\n")
	sb.WriteString(classifySpec)

	return classifyInstructions, sb.String()
}

// buildCategorizePrompt assembles the system and user prompts for a batch
// categorization call.
func buildCategorizePrompt(sections []string, hint ContextHint) (system, user string) {
	var sb strings.Builder

	if hint.GameType != "" {
		fmt.Fprintf(&sb, "Publication: %s", hint.GameType)
		if hint.Edition != "" {
			fmt.Fprintf(&sb, " (%s)", hint.Edition)
		}
		if hint.BookType != "" {
			fmt.Fprintf(&sb, ", %s", hint.BookType)
		}
		sb.WriteString("\n")
	}

	if len(hint.Categories) > 0 {
		fmt.Fprintf(&sb, "Allowed categories: %s\n", strings.Join(hint.Categories, ", "))
	}

	fmt.Fprintf(&sb, "\nSections (%d total):\n\n", len(sections))
	for i, section := range sections {
		fmt.Fprintf(&sb, "%d. %s\n\n", i+1, section)
	}

	sb.WriteString(categorizeSpec)

	return categorizeInstructions, sb.String()
}
