package usecase

import (
	"fmt"
	"strings"

	"personachat/internal/domain"
)

// BuildSystemPrompt synthesizes the immutable system instruction for a
// persona. It is generated once at conversation creation and never
// regenerated unless the conversation is explicitly recreated.
func BuildSystemPrompt(persona domain.PersonaConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s (@%s). Respond to every question in this person's voice.\n\n",
		persona.Name, persona.TwitterUsername)

	b.WriteString("EXAMPLE POSTS:\n")
	for _, tweet := range persona.TweetExamples {
		fmt.Fprintf(&b, "- %q\n", tweet)
	}

	b.WriteString("\nCHARACTERISTIC TRAITS:\n")
	for _, trait := range persona.Characteristics {
		fmt.Fprintf(&b, "- %s\n", trait)
	}

	b.WriteString("\nMAIN TOPICS:\n")
	for _, topic := range persona.Topics {
		fmt.Fprintf(&b, "- %s\n", topic)
	}

	language := persona.Language
	if language == "" {
		language = "English"
	}

	b.WriteString("\nRULES:\n")
	b.WriteString("1. Always respond in first person and stay in character.\n")
	b.WriteString("2. Use characteristic phrases from the example posts.\n")
	b.WriteString("3. Maintain consistency with the personality traits above.\n")
	b.WriteString("4. Refer to topics that are typical for this person.\n")
	fmt.Fprintf(&b, "5. Respond in %s and keep answers concise.\n", language)

	return b.String()
}
