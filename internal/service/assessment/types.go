package assessment

import "github.com/kapu/sales-skills-engine/internal/domain"

type QualifyRequest struct {
	Transcript string   `json:"transcript"`
	AllSkills  []string `json:"allSkills"`
	SellerID   string   `json:"sellerId"`
}

type JudgeRequest struct {
	Transcript string `json:"transcript"`
	Skill      string `json:"skill"`
	SellerID   string `json:"sellerId"`
}

// CoachRequest carries a judge result into the coach stage. Rating is a
// pointer so an absent rating can be told apart from zero.
type CoachRequest struct {
	SkillName    string                   `json:"skillName"`
	Rating       *float64                 `json:"rating"`
	LevelChecks  []domain.LevelCheckGroup `json:"levelChecks"`
	SkillKeyHash string                   `json:"skillKeyHash"`
}

type AssessRequest struct {
	Transcript string   `json:"transcript"`
	SellerID   string   `json:"sellerId"`
	Skills     []string `json:"skills"`
}

type RoleplayRequest struct {
	Transcript string               `json:"transcript"`
	Skills     []domain.ScoredSkill `json:"skills"`
}

type CacheStatusRequest struct {
	Transcript string   `json:"transcript"`
	SellerID   string   `json:"sellerId"`
	Skills     []string `json:"skills"`
}

// Failure reasons reported on SkillError.
const (
	FailureUnresolved = "unresolved_skill"
	FailureParse      = "judge_parse"
	FailureUpstream   = "upstream"
	FailureOther      = "error"
)

// SkillError records a skill that dropped out of a batch run.
type SkillError struct {
	Skill  string `json:"skill"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

type RunMeta struct {
	DurationMS int64  `json:"duration_ms"`
	RunID      string `json:"run_id"`
	KVHits     int    `json:"kv_hits"`
	KVMisses   int    `json:"kv_misses"`
}

type RunResult struct {
	Assessments []domain.Assessment `json:"assessments"`
	Errors      []SkillError        `json:"errors"`
	Meta        RunMeta             `json:"meta"`
}

type RoleplayMeta struct {
	DurationMS int64  `json:"duration_ms"`
	RunID      string `json:"run_id"`
	KVHit      bool   `json:"kv_hit"`
}

type RoleplayResult struct {
	Assessments []domain.Assessment `json:"assessments"`
	Meta        RoleplayMeta        `json:"meta"`
}
