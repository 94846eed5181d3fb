package localize

import (
	"fmt"
	"strings"

	"github.com/art-solutions/nanobana-gen/modules/common/model"
)

// BuildInstruction - assemble the transform instruction from the job's
// config snapshot. A fixed base template carries the localization task;
// branding clauses are appended only when their flag (and payload, for the
// logo) is present.
func BuildInstruction(cfg model.LocaleConfig) string {
	hasLogo := len(cfg.LogoData) > 0

	mainInstruction := "[MARKETING CREATIVE LOCALIZATION]\n" +
		fmt.Sprintf("You are localizing a marketing creative for the %s market.\n", cfg.TargetLocale) +
		"The attached Image 1 is the source creative.\n\n" +
		"Create ONE localized version of the source image:\n" +
		fmt.Sprintf("• Redraw ALL visible text in the natural language of %s\n", cfg.TargetLocale) +
		"• Keep the layout, composition, camera angle and object placement IDENTICAL to the source\n" +
		"• Match the original typography style, weight and perspective for every replaced text block\n" +
		"• Translated copy must read like native-market advertising, not literal word-for-word translation\n" +
		"• Preserve image resolution and overall color grading unless instructed otherwise below\n"

	var instructions []string

	if cfg.StyleHints != "" {
		instructions = append(instructions,
			"[STYLE DIRECTION]\n"+
				fmt.Sprintf("• %s", cfg.StyleHints))
	}

	if cfg.RemoveBranding {
		instructions = append(instructions,
			"[BRANDING - REMOVE]\n"+
				"• Remove ALL existing brand marks, logos, watermarks and brand-identifying text from the image\n"+
				"• Fill the cleared regions so they blend seamlessly with the surrounding design")
	}

	if cfg.InjectBrandColor && cfg.BrandColor != "" {
		instructions = append(instructions,
			"[BRANDING - COLOR]\n"+
				fmt.Sprintf("• Recolor the key accent elements (buttons, highlights, frames) using the brand color %s\n", cfg.BrandColor)+
				"• Keep photographic regions natural; apply the color to graphic elements only")
	}

	if hasLogo {
		instructions = append(instructions,
			"[BRANDING - LOGO]\n"+
				"• The attached Image 2 is the brand logo\n"+
				"• Place the logo naturally where a brand mark belongs in this kind of creative\n"+
				"• Do NOT distort the logo's proportions or colors")
	}

	if len(instructions) == 0 {
		return mainInstruction
	}

	return mainInstruction + "\n" + strings.Join(instructions, "\n\n")
}
