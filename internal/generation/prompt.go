package generation

import (
	"strings"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// BuildPrompt combines the identity profile with one pose instruction.
// Degraded profiles restored from history only carry the outfit.
func BuildPrompt(profile *models.AnalysisProfile, pose Pose) string {
	var sb strings.Builder
	sb.WriteString("Task: generate a PHOTO-REALISTIC image of the person in the provided reference image(s).\n")
	sb.WriteString("The first reference image is the identity anchor.\n\n")
	sb.WriteString("IDENTITY AND STYLE:\n")
	sb.WriteString("- The output MUST look exactly like the person in the reference images.\n")

	line := func(label, value, fallback string) {
		if value == "" {
			value = fallback
		}
		if value == "" {
			return
		}
		sb.WriteString("- " + label + ": " + value + "\n")
	}
	line("FACE AND EXPRESSION", profile.Description, "Match the reference images")
	line("CONSISTENT HABITS", profile.ConsistencyNotes, "Maintain facial consistency.")
	line("VIBE", profile.VibeSummary, "Natural and candid.")
	line("EXPRESSION MATCHING", strings.Join(profile.KeyFeatures, ", "), "")
	line("CAMERA ANGLE AND STYLE", profile.PhotographicStyle, "")
	line("OUTFIT", profile.Outfit, "")
	line("BACKGROUND", profile.Environment, "")

	sb.WriteString("\nSCENARIO:\n")
	sb.WriteString(pose.Prompt)
	sb.WriteString("\n\nSTYLE:\n")
	sb.WriteString("- Friend POV or selfie, depending on the reference style.\n")
	sb.WriteString("- Shot on a phone camera with realistic, unsmoothed skin texture.\n")
	sb.WriteString("- Slight motion blur or focus imperfections are welcome.\n")
	sb.WriteString("- No AI gloss. It should look like a raw camera roll photo.\n")
	return sb.String()
}
