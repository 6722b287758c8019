package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/internal/util"
)

const (
	QualifySystem = "You are an AI analyst that only responds with JSON."

	JudgeSystem = "You are an objective rubric grader. Your entire response MUST be a single, valid JSON object that conforms to the user's example. Follow all rules precisely."

	CoachSystem = `You are a practical, expert sales coach. Your task is to provide concise, actionable feedback based on a provided analysis. You MUST follow the JSON schema below perfectly. The user's prompt will provide specific instructions on what kind of content to generate for each field based on the seller's score.
{"strengths": ["List of strengths exhibited."], "improvements": [{"point": "A specific area for improvement.", "example": {"instead_of": "What the seller said.", "try_this": "A better alternative."}}], "coaching_tips": ["Actionable coaching tips."]}`
)

// PolarityContract fixes the meaning of met for inverted characteristics.
const PolarityContract = `**CRITICAL RULE 3 (Polarity):**
- For "positive" polarity, 'met: true' means the seller successfully demonstrated the behavior or exceeded it.
- For "negative" or "limitation" polarity, 'met: true' means the seller successfully *avoided* the negative behavior or limitation. If the seller showed the limitation, 'met' is false.`

// SanityCheckStep is the reasoning step that lets a seller who clearly
// surpassed a lower-level limitation pass it.
const SanityCheckStep = `**Sanity Check:** Re-read the characteristic. Did the seller's performance *exceed* the criteria, for example by avoiding a "limitation" through a higher-level skill? If yes, you MUST set 'met' to 'true'.`

// Qualification selection bounds rendered into the qualify prompt.
const (
	QualifyRelaxBelow = 6
	QualifyTrimAbove  = 12
	QualifyTargetMin  = 8
	QualifyTargetMax  = 12
)

// Tier is the coaching register chosen from a rating.
type Tier struct {
	Title                  string
	ImprovementInstruction string
	TipInstruction         string
}

const (
	TierTitleOpportunities = "Next-Level Opportunities"
	TierTitleRefinement    = "Areas for Refinement to Reach Mastery"
	TierTitleImprovement   = "Areas for Improvement"
)

func TierFor(rating int) Tier {
	switch {
	case rating >= 5:
		return Tier{
			Title:                  TierTitleOpportunities,
			ImprovementInstruction: "Since the seller achieved mastery, identify 2-3 advanced strategic opportunities that would take an already excellent conversation further. Tie each one to a specific moment and give an \"instead_of\"/\"try_this\" example.",
			TipInstruction:         "Provide 2-3 expert-level tips focused on strategic influence, executive presence and long-term account growth.",
		}
	case rating == 4:
		return Tier{
			Title:                  TierTitleRefinement,
			ImprovementInstruction: "Find 2-4 moments where the seller was proficient but could have shown mastery. Use the unmet Level 5 characteristics as the target and give an \"instead_of\"/\"try_this\" example for each.",
			TipInstruction:         "Provide 2-4 tips that help a proficient seller refine their approach to reach mastery.",
		}
	default:
		return Tier{
			Title:                  TierTitleImprovement,
			ImprovementInstruction: "Based on unmet characteristics from the next level up, find 2-4 moments where the seller could have improved. For each, give an \"instead_of\"/\"try_this\" example quoting or paraphrasing the seller.",
			TipInstruction:         "Provide 3-5 practical, actionable tips the seller can apply on their next call.",
		}
	}
}

// RenderBusinessContext builds the context block shared by coaching prompts.
func RenderBusinessContext(bc BusinessContext) string {
	var sb strings.Builder
	sb.WriteString("**BUSINESS CONTEXT:**\n")
	fmt.Fprintf(&sb, "- The seller works for %s, selling into the %s sector.\n", bc.Company, bc.Vertical)
	if bc.Buyers != "" {
		fmt.Fprintf(&sb, "- Buyers are %s.\n", bc.Buyers)
	}
	sb.WriteString("- All coaching, examples and suggested phrasing must be relevant to this market. Do not suggest language or scenarios from unrelated industries.")
	return sb.String()
}

// BuildQualifyPrompt renders the skill selection prompt. Hints may be empty.
func (pb *PromptBuilder) BuildQualifyPrompt(sellerID, transcript string, allSkills []string, hints []domain.CompetencyHint) (string, error) {
	catalog, err := json.MarshalIndent(allSkills, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal skill catalog: %w", err)
	}

	data := QualifyPromptData{
		SellerID:    sellerID,
		Transcript:  transcript,
		CatalogJSON: string(catalog),
		RelaxBelow:  QualifyRelaxBelow,
		TrimAbove:   QualifyTrimAbove,
		TargetMin:   QualifyTargetMin,
		TargetMax:   QualifyTargetMax,
	}
	if len(hints) > 0 {
		h, err := json.MarshalIndent(hints, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal competency hints: %w", err)
		}
		data.HintsJSON = string(h)
	}

	return pb.Render(TemplateQualify, data)
}

func (pb *PromptBuilder) BuildJudgePrompt(sellerName, skillName, transcript string, rubric domain.SkillRubric) (string, error) {
	rubricJSON, err := util.StableKey(rubric)
	if err != nil {
		return "", fmt.Errorf("encode rubric: %w", err)
	}
	return pb.Render(TemplateJudge, JudgePromptData{
		SellerName:       sellerName,
		SkillName:        skillName,
		Transcript:       transcript,
		RubricJSON:       rubricJSON,
		SanityCheck:      SanityCheckStep,
		PolarityContract: PolarityContract,
	})
}

// BuildCoachPrompt renders the coaching prompt for a graded skill and returns
// the improvement title that goes with the rating.
func (pb *PromptBuilder) BuildCoachPrompt(skillName string, rating int, levelChecks []domain.LevelCheckGroup, bc BusinessContext) (string, string, error) {
	if levelChecks == nil {
		levelChecks = []domain.LevelCheckGroup{}
	}
	analysis, err := util.StableKey(map[string]any{"level_checks": levelChecks})
	if err != nil {
		return "", "", fmt.Errorf("encode analysis: %w", err)
	}

	tier := TierFor(rating)
	out, err := pb.Render(TemplateCoach, CoachPromptData{
		SkillName:       skillName,
		Rating:          rating,
		AnalysisJSON:    analysis,
		BusinessContext: RenderBusinessContext(bc),
		Tier:            tier,
	})
	if err != nil {
		return "", "", err
	}
	return out, tier.Title, nil
}

func (pb *PromptBuilder) BuildRoleplayCoachPrompt(skillName string, rating int, rubric domain.SkillRubric, transcript string, bc BusinessContext) (string, error) {
	rubricJSON, err := util.StableKey(rubric)
	if err != nil {
		return "", fmt.Errorf("encode rubric: %w", err)
	}

	focus := "Focus on general best practices."
	if next, ok := rubric.LevelByNumber(rating + 1); ok {
		focus = fmt.Sprintf("Focus on the characteristics from Level %d ('%s') as the primary areas for improvement.", next.Level, next.Name)
	}

	return pb.Render(TemplateRoleplayCoach, RoleplayCoachPromptData{
		SkillName:        skillName,
		Rating:           rating,
		BusinessContext:  RenderBusinessContext(bc),
		ImprovementFocus: focus,
		RubricJSON:       rubricJSON,
		Transcript:       transcript,
	})
}
