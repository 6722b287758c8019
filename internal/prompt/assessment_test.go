package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/sales-skills-engine/internal/domain"
)

var testRubric = domain.SkillRubric{Levels: []domain.RubricLevel{
	{Level: 1, Name: "Novice", Characteristics: []domain.Characteristic{{Text: "Talks over the buyer", Polarity: domain.PolarityLimitation}}},
	{Level: 2, Name: "Developing", Characteristics: []domain.Characteristic{{Text: "Asks open questions", Polarity: domain.PolarityPositive}}},
}}

var testContext = BusinessContext{Company: "Turnitin", Vertical: "EdTech / Education", Buyers: "universities"}

func TestTierFor(t *testing.T) {
	assert.Equal(t, TierTitleOpportunities, TierFor(5).Title)
	assert.Equal(t, TierTitleOpportunities, TierFor(7).Title)
	assert.Equal(t, TierTitleRefinement, TierFor(4).Title)
	assert.Equal(t, TierTitleImprovement, TierFor(3).Title)
	assert.Equal(t, TierTitleImprovement, TierFor(1).Title)
	assert.Contains(t, TierFor(2).TipInstruction, "3-5")
}

func TestBuildQualifyPrompt(t *testing.T) {
	pb := NewPromptBuilder()
	hints := []domain.CompetencyHint{{Competency: "Discovery", Skills: []string{"Active Listening"}}}

	out, err := pb.BuildQualifyPrompt("Alex", "hello there", []string{"Active Listening", "Closing"}, hints)
	require.NoError(t, err)

	assert.Contains(t, out, "**Seller:** Alex")
	assert.Contains(t, out, "hello there")
	assert.Contains(t, out, `"Closing"`)
	assert.Contains(t, out, "Competency Hints")
	assert.Contains(t, out, `"qualifiedSkills"`)
	assert.Contains(t, out, "fewer than 6")

	out, err = pb.BuildQualifyPrompt("Alex", "hello", []string{"Closing"}, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "Competency Hints")
}

func TestBuildJudgePromptCarriesPolarityContract(t *testing.T) {
	out, err := NewPromptBuilder().BuildJudgePrompt("Alex", "Active Listening", "transcript body", testRubric)
	require.NoError(t, err)

	assert.Contains(t, out, PolarityContract)
	assert.Contains(t, out, SanityCheckStep)
	assert.Contains(t, out, `seller named "Alex"`)
	assert.Contains(t, out, "transcript body")
	assert.Contains(t, out, `{"levels":[{"characteristics":[{"polarity":"limitation","text":"Talks over the buyer"}],"level":1,"name":"Novice"}`)
}

func TestBuildCoachPrompt(t *testing.T) {
	checks := []domain.LevelCheckGroup{{Level: 1, Name: "Novice", Checks: []domain.LevelCheck{{Characteristic: "c", Met: true, Evidence: []string{}}}}}

	out, title, err := NewPromptBuilder().BuildCoachPrompt("Active Listening", 4, checks, testContext)
	require.NoError(t, err)

	assert.Equal(t, TierTitleRefinement, title)
	assert.Contains(t, out, `"Active Listening" has a final rating of 4/5`)
	assert.Contains(t, out, "**"+TierTitleRefinement+"**")
	assert.Contains(t, out, "Turnitin")
	assert.Contains(t, out, "EdTech / Education")
	assert.Contains(t, out, `"level_checks":[{"checks"`)
}

func TestBuildRoleplayCoachPromptNextLevelFocus(t *testing.T) {
	pb := NewPromptBuilder()

	out, err := pb.BuildRoleplayCoachPrompt("Active Listening", 1, testRubric, "the call", testContext)
	require.NoError(t, err)
	assert.Contains(t, out, "Level 2 ('Developing')")
	assert.Contains(t, out, "Level 1")
	assert.Contains(t, out, "Turnitin")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "---"))

	out, err = pb.BuildRoleplayCoachPrompt("Active Listening", 2, testRubric, "the call", testContext)
	require.NoError(t, err)
	assert.Contains(t, out, "Focus on general best practices.")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := NewPromptBuilder().Render("missing.tmpl", nil)
	assert.Error(t, err)
}

func TestBuilderPreloadsStageTemplates(t *testing.T) {
	pb := NewPromptBuilder()
	assert.Equal(t, []TemplateName{TemplateCoach, TemplateJudge, TemplateQualify, TemplateRoleplayCoach}, pb.Templates())
	assert.Same(t, DefaultPromptBuilder(), DefaultPromptBuilder())
}

func TestRenderMissingFieldFails(t *testing.T) {
	_, err := NewPromptBuilder().Render(TemplateJudge, map[string]any{})
	assert.Error(t, err)
}
