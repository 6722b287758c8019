package domain

import (
	"sort"

	"github.com/kapu/sales-skills-engine/internal/util"
)

type Polarity string

const (
	PolarityPositive   Polarity = "positive"
	PolarityLimitation Polarity = "limitation"
	PolarityNegative   Polarity = "negative"
)

func (p Polarity) String() string {
	return string(p)
}

type Characteristic struct {
	Text     string   `json:"text"`
	Polarity Polarity `json:"polarity"`
}

type RubricLevel struct {
	Level           int              `json:"level"`
	Name            string           `json:"name"`
	Characteristics []Characteristic `json:"characteristics"`
}

type SkillRubric struct {
	Levels []RubricLevel `json:"levels"`
}

// LevelByNumber returns the level with the given number, if the rubric defines it.
func (r SkillRubric) LevelByNumber(n int) (RubricLevel, bool) {
	for _, lvl := range r.Levels {
		if lvl.Level == n {
			return lvl, true
		}
	}
	return RubricLevel{}, false
}

type Competency struct {
	Skills map[string]SkillRubric `json:"skills"`
}

// RubricSet is one versioned catalog: competency name -> skills -> rubric.
type RubricSet map[string]Competency

type ResolvedSkill struct {
	SkillName  string
	Competency string
	Rubric     SkillRubric
}

// Resolve finds a skill by name, ignoring case and whitespace differences.
func (s RubricSet) Resolve(requested string) (*ResolvedSkill, bool) {
	want := util.NormalizeKey(requested)
	if want == "" {
		return nil, false
	}
	for _, comp := range s.sortedCompetencies() {
		for name, rubric := range s[comp].Skills {
			if util.NormalizeKey(name) == want {
				return &ResolvedSkill{SkillName: name, Competency: comp, Rubric: rubric}, true
			}
		}
	}
	return nil, false
}

// SkillNames lists every skill in the set, ordered by competency then skill.
func (s RubricSet) SkillNames() []string {
	names := make([]string, 0)
	for _, comp := range s.sortedCompetencies() {
		skills := make([]string, 0, len(s[comp].Skills))
		for name := range s[comp].Skills {
			skills = append(skills, name)
		}
		sort.Strings(skills)
		names = append(names, skills...)
	}
	return names
}

type CompetencyHint struct {
	Competency string   `json:"competency"`
	Skills     []string `json:"skills"`
}

// Hints groups skill names under their competency, at most limit per group.
func (s RubricSet) Hints(limit int) []CompetencyHint {
	hints := make([]CompetencyHint, 0, len(s))
	for _, comp := range s.sortedCompetencies() {
		skills := make([]string, 0, len(s[comp].Skills))
		for name := range s[comp].Skills {
			skills = append(skills, name)
		}
		sort.Strings(skills)
		if limit > 0 && len(skills) > limit {
			skills = skills[:limit]
		}
		hints = append(hints, CompetencyHint{Competency: comp, Skills: skills})
	}
	return hints
}

func (s RubricSet) sortedCompetencies() []string {
	comps := make([]string, 0, len(s))
	for name := range s {
		comps = append(comps, name)
	}
	sort.Strings(comps)
	return comps
}
