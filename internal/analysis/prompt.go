package analysis

import (
	"fmt"
	"strings"
)

// Shape selects the analysis prompt variant. The choice depends only on the
// number of assets.
type Shape int

const (
	ShapeSingle Shape = iota
	ShapeComposite
)

func ShapeFor(assetCount int) Shape {
	if assetCount > 1 {
		return ShapeComposite
	}
	return ShapeSingle
}

func (s Shape) String() string {
	if s == ShapeComposite {
		return "composite"
	}
	return "single"
}

// ProgressMessage is shown while the analysis call is in flight.
func ProgressMessage(assetCount int) string {
	if ShapeFor(assetCount) == ShapeComposite {
		return fmt.Sprintf("Fusing identity matrix from %d sources...", assetCount)
	}
	return "Scanning biometrics, angles & expression habits..."
}

// BuildPrompt returns the identity analysis instructions for n reference crops.
func BuildPrompt(n int) string {
	composite := ShapeFor(n) == ShapeComposite
	pick := func(multi, single string) string {
		if composite {
			return multi
		}
		return single
	}

	var sb strings.Builder
	sb.WriteString("You are a forensic identity and photography specialist.\n")
	fmt.Fprintf(&sb, "You are given %d reference image(s) of the SAME person.\n", n)
	if composite {
		sb.WriteString("The first images are face crops, any remaining images are full originals for context.\n")
	}
	sb.WriteString(pick(
		"Build a composite identity profile. Where the photos disagree, reconcile the differences and report only traits that are consistent across images.\n",
		"Describe the identity in this specific image precisely.\n",
	))

	sb.WriteString(`
Analyze these layers:

1. BIOMETRIC IDENTITY
   - Use the FIRST image as the anchor for core facial structure.
   - Face shape, jawline, skin texture, eye shape and color, nose, mouth.
`)
	sb.WriteString("   - " + pick(
		"If the hair style varies across photos, describe the most common or defining style.",
		"Describe hair texture and style.",
	) + "\n")

	sb.WriteString("\n2. EXPRESSION AND MICRO-HABITS\n   - " + pick(
		"Identify recurring habits: head tilt, squinting, smiling with or without teeth.",
		"Describe the specific facial muscle habits.",
	) + "\n   - Capture the overall vibe, for example \"cool and stoic\" or \"bubbly and chaotic\".\n")

	sb.WriteString("\n3. PHOTOGRAPHIC STYLE AND ANGLES\n   - " + pick(
		"What is their signature angle? For example \"prefers left profile\" or \"always high-angle selfie\".",
		"Analyze the camera angle and lens type.",
	) + "\n")

	sb.WriteString("\n4. OUTFIT\n   - " + pick(
		"Summarize their fashion sense across all images.",
		"List visible clothing materials and colors.",
	) + "\n")

	sb.WriteString("\n5. ENVIRONMENT\n   - Estimate the typical location or setting they appear in.\n")

	sb.WriteString(`
Respond with valid JSON only:
{
  "description": "Comprehensive biometric description.",
  "outfit": "Detailed outfit or fashion style analysis.",
  "environment": "Context description.",
  "photographicStyle": "Camera angle habits and posing style.",
  "detectedGender": "Male/Female/Non-binary",
  "keyFeatures": ["feature 1", "feature 2", "expression feature"],
  "vibeAnalysis": "Summary of the personality projected across the images.",
  "consistencyNotes": "Features that are consistent across all reference images."`)
	if composite {
		sb.WriteString(`,
  "compositeConfidence": 0.0`)
	}
	sb.WriteString("\n}\n")
	if composite {
		sb.WriteString("compositeConfidence is a number between 0 and 1 stating how confident you are that all images show the same person.\n")
	}
	return sb.String()
}
