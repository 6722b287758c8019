package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// LevelCheck is the verdict on a single rubric characteristic.
type LevelCheck struct {
	Characteristic string   `json:"characteristic"`
	Polarity       Polarity `json:"polarity"`
	Met            bool     `json:"met"`
	Evidence       []string `json:"evidence"`
	Reason         string   `json:"reason"`
}

// UnmarshalJSON only counts a literal true as met. Evidence may arrive as a
// bare string.
func (c *LevelCheck) UnmarshalJSON(data []byte) error {
	var aux struct {
		Characteristic string          `json:"characteristic"`
		Polarity       Polarity        `json:"polarity"`
		Met            json.RawMessage `json:"met"`
		Evidence       json.RawMessage `json:"evidence"`
		Reason         string          `json:"reason"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.Characteristic = aux.Characteristic
	c.Polarity = aux.Polarity
	c.Reason = aux.Reason
	c.Met = string(aux.Met) == "true"
	c.Evidence = []string{}

	if len(aux.Evidence) == 0 || string(aux.Evidence) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(aux.Evidence, &list); err == nil {
		c.Evidence = list
		return nil
	}
	var single string
	if err := json.Unmarshal(aux.Evidence, &single); err == nil {
		if single != "" {
			c.Evidence = []string{single}
		}
		return nil
	}
	return fmt.Errorf("evidence must be a list of strings")
}

type LevelCheckGroup struct {
	Level  int          `json:"level"`
	Name   string       `json:"name"`
	Checks []LevelCheck `json:"checks"`
}

// UnmarshalJSON accepts the level number as an integer, a float or a numeric string.
func (g *LevelCheckGroup) UnmarshalJSON(data []byte) error {
	var aux struct {
		Level  json.RawMessage `json:"level"`
		Name   string          `json:"name"`
		Checks []LevelCheck    `json:"checks"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	level, err := parseLevelNumber(aux.Level)
	if err != nil {
		return err
	}
	g.Level = level
	g.Name = aux.Name
	g.Checks = aux.Checks
	if g.Checks == nil {
		g.Checks = []LevelCheck{}
	}
	return nil
}

func parseLevelNumber(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, fmt.Errorf("level %q is not a number", s)
		}
		return n, nil
	}
	return 0, fmt.Errorf("level must be a number")
}

type ImprovementExample struct {
	InsteadOf string `json:"instead_of"`
	TryThis   string `json:"try_this"`
}

type Improvement struct {
	Point   string             `json:"point"`
	Example ImprovementExample `json:"example"`
}

// Coaching is the coach model's contribution to an Assessment.
type Coaching struct {
	Strengths    []string      `json:"strengths"`
	Improvements []Improvement `json:"improvements"`
	CoachingTips []string      `json:"coaching_tips"`
}

// Assessment is the unit persisted to cache and returned to callers.
type Assessment struct {
	Skill            string            `json:"skill"`
	Rating           int               `json:"rating"`
	Strengths        []string          `json:"strengths"`
	Improvements     []Improvement     `json:"improvements"`
	CoachingTips     []string          `json:"coaching_tips"`
	ImprovementTitle string            `json:"improvement_title,omitempty"`
	LevelChecks      []LevelCheckGroup `json:"level_checks"`
}

// ApplyCoaching copies coach output onto the assessment, keeping lists non-nil.
func (a *Assessment) ApplyCoaching(c Coaching) {
	a.Strengths = c.Strengths
	a.Improvements = c.Improvements
	a.CoachingTips = c.CoachingTips
	a.fillEmpty()
}

func (a *Assessment) fillEmpty() {
	if a.Strengths == nil {
		a.Strengths = []string{}
	}
	if a.Improvements == nil {
		a.Improvements = []Improvement{}
	}
	if a.CoachingTips == nil {
		a.CoachingTips = []string{}
	}
	if a.LevelChecks == nil {
		a.LevelChecks = []LevelCheckGroup{}
	}
}

type JudgeMeta struct {
	KVHit bool `json:"kv_hit"`
}

// JudgeResult is the grading outcome for one (transcript, skill) pair. On a
// cache hit Assessment carries the stored result and RawJudge is empty.
type JudgeResult struct {
	SkillKeyHash string            `json:"skillKeyHash"`
	SkillName    string            `json:"skillName"`
	Rating       int               `json:"rating"`
	LevelChecks  []LevelCheckGroup `json:"levelChecks"`
	RawJudge     json.RawMessage   `json:"rawJudge,omitempty"`
	Assessment   *Assessment       `json:"assessment,omitempty"`
	Meta         JudgeMeta         `json:"meta"`
}

// QualifiedSkill is a selected skill annotated with whether a graded result
// already exists for it.
type QualifiedSkill struct {
	Skill  string `json:"skill"`
	Cached bool   `json:"cached"`
}

type Qualification struct {
	QualifiedSkills []QualifiedSkill `json:"qualifiedSkills"`
	SellerIdentity  string           `json:"sellerIdentity"`
}

type ScoredSkill struct {
	Skill string `json:"skill"`
	Score int    `json:"score"`
}
