package prompt

import (
	"testing"

	"github.com/digkill/magicpic/internal/models"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name     string
		template string
		mods     models.Modifiers
		want     string
	}{
		{
			name:     "mood only",
			template: "T",
			mods:     models.Modifiers{Mood: "happy"},
			want:     "T The mood should feel happy. Maintain the subject's facial features and identity. Output only the transformed image.",
		},
		{
			name:     "no modifiers",
			template: "Ghibli style.",
			want:     "Ghibli style. Maintain the subject's facial features and identity. Output only the transformed image.",
		},
		{
			name:     "whitespace modifiers are skipped",
			template: "T",
			mods:     models.Modifiers{Mood: "  ", Weather: "\t", DressStyle: "", CustomPrompt: " "},
			want:     "T Maintain the subject's facial features and identity. Output only the transformed image.",
		},
		{
			name:     "all modifiers in order",
			template: "T",
			mods:     models.Modifiers{Mood: "calm", Weather: "rainy", DressStyle: "formal", CustomPrompt: "add a cat"},
			want: "T The mood should feel calm. The weather/environment should look rainy. " +
				"The subject's clothing style should be formal. Additional instruction: add a cat " +
				"Maintain the subject's facial features and identity. Output only the transformed image.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compose(tt.template, tt.mods); got != tt.want {
				t.Errorf("Compose() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComposeDeterministic(t *testing.T) {
	mods := models.Modifiers{Weather: "snowy", CustomPrompt: "smile"}
	if Compose("T", mods) != Compose("T", mods) {
		t.Error("Compose() is not deterministic")
	}
}
