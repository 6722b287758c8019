package prompt

type QualifyPromptData struct {
	SellerID    string
	Transcript  string
	CatalogJSON string
	HintsJSON   string
	RelaxBelow  int
	TrimAbove   int
	TargetMin   int
	TargetMax   int
}

type JudgePromptData struct {
	SellerName       string
	SkillName        string
	Transcript       string
	RubricJSON       string
	SanityCheck      string
	PolarityContract string
}

type CoachPromptData struct {
	SkillName       string
	Rating          int
	AnalysisJSON    string
	BusinessContext string
	Tier            Tier
}

type RoleplayCoachPromptData struct {
	SkillName        string
	Rating           int
	BusinessContext  string
	ImprovementFocus string
	RubricJSON       string
	Transcript       string
}

// BusinessContext describes who the seller sells for and to. It is rendered
// into every coaching prompt.
type BusinessContext struct {
	Company  string
	Vertical string
	Buyers   string
}
