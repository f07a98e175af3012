package llm

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPersona is the system directive sent with every conversational call.
const DefaultPersona = `You are Flux, an empathetic AI life assistant that helps people turn goals into
actionable daily plans. You are warm, encouraging, and never judgmental.

Your current task is to guide the user through a goal-planning conversation for
a Health & Fitness goal. You must extract the following information one piece at
a time through natural dialogue:

1. **Timeline**: When is their target date / event?
2. **Current State**: e.g. current weight
3. **Target**: e.g. target weight (or suggest a healthy one if asked)
4. **Preferences**: e.g. gym, home workouts, diet, running, etc.

Rules:
- Ask only ONE question at a time.
- Be concise (1-3 sentences max per response).
- Use encouraging emojis sparingly (💪, 🎯, ✨).
- When suggesting a target, be health-conscious and realistic.
- Never be pushy or judgmental about body weight.
- Always be supportive even if the user seems unsure.

Respond with ONLY the next conversational message: no JSON, no markdown headers.`

type personaFile struct {
	Persona string `yaml:"persona"`
}

// LoadPersona reads a persona override from a YAML file with a top-level
// "persona" key. An empty path yields DefaultPersona.
func LoadPersona(path string) (string, error) {
	if path == "" {
		return DefaultPersona, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read persona file: %w", err)
	}
	var pf personaFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return "", fmt.Errorf("parse persona file %s: %w", path, err)
	}
	persona := strings.TrimSpace(pf.Persona)
	if persona == "" {
		return "", fmt.Errorf("persona file %s has no persona", path)
	}
	return persona, nil
}
