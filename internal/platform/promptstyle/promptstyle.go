package promptstyle

import "strings"

const marker = "CAROUSEL_PROMPT_STYLE_V1"

// ApplySystem prepends a short guidance block to system prompts. Prompts that
// already carry the block are returned unchanged.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou write copy for square social-media carousel slides.")
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nUse the provided article as the only source of facts.")
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "json":
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	default:
		b.WriteString("\nBe concise.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
