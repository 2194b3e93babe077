package usecase

import (
	"strings"
	"testing"

	"personachat/internal/domain"
)

func testPersona() domain.PersonaConfig {
	return domain.PersonaConfig{
		Name:            "Ada Lovelace",
		TwitterUsername: "ada",
		TweetExamples:   []string{"The engine weaves algebraic patterns.", "Imagination is the discovering faculty."},
		Characteristics: []string{"analytical", "poetic"},
		Topics:          []string{"mathematics", "computing"},
	}
}

func TestBuildSystemPromptIncludesProfile(t *testing.T) {
	prompt := BuildSystemPrompt(testPersona())

	wantFragments := []string{
		"You are Ada Lovelace (@ada)",
		"EXAMPLE POSTS:",
		"The engine weaves algebraic patterns.",
		"CHARACTERISTIC TRAITS:",
		"- analytical",
		"- poetic",
		"MAIN TOPICS:",
		"- mathematics",
		"- computing",
		"RULES:",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(prompt, frag) {
			t.Errorf("prompt missing %q", frag)
		}
	}
}

func TestBuildSystemPromptLanguageDefaultsToEnglish(t *testing.T) {
	prompt := BuildSystemPrompt(testPersona())
	if !strings.Contains(prompt, "Respond in English") {
		t.Errorf("prompt missing English default: %s", prompt)
	}

	p := testPersona()
	p.Language = "Polish"
	prompt = BuildSystemPrompt(p)
	if !strings.Contains(prompt, "Respond in Polish") {
		t.Errorf("prompt missing configured language: %s", prompt)
	}
}

func TestBuildSystemPromptDeterministic(t *testing.T) {
	a := BuildSystemPrompt(testPersona())
	b := BuildSystemPrompt(testPersona())
	if a != b {
		t.Error("prompt generation is not deterministic")
	}
}
