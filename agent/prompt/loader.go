package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/intent.txt
	intentRaw string

	//go:embed template/domain.txt
	domainRaw string

	//go:embed template/persona.txt
	personaRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Intent  string
	Domain  string
	Persona string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Intent:  strings.TrimSpace(intentRaw),
		Domain:  strings.TrimSpace(domainRaw),
		Persona: strings.TrimSpace(personaRaw),
	}
}
