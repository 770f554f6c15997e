// Package prompt builds the text sent alongside the user's photo.
package prompt

import (
	"strings"

	"github.com/digkill/magicpic/internal/models"
)

const identitySuffix = "Maintain the subject's facial features and identity. Output only the transformed image."

// Compose appends one sentence per non-blank modifier to the style template,
// then the identity-preservation instruction. Output depends only on inputs.
func Compose(template string, m models.Modifiers) string {
	parts := []string{template}
	if v := strings.TrimSpace(m.Mood); v != "" {
		parts = append(parts, "The mood should feel "+v+".")
	}
	if v := strings.TrimSpace(m.Weather); v != "" {
		parts = append(parts, "The weather/environment should look "+v+".")
	}
	if v := strings.TrimSpace(m.DressStyle); v != "" {
		parts = append(parts, "The subject's clothing style should be "+v+".")
	}
	if v := strings.TrimSpace(m.CustomPrompt); v != "" {
		parts = append(parts, "Additional instruction: "+v)
	}
	parts = append(parts, identitySuffix)
	return strings.Join(parts, " ")
}
