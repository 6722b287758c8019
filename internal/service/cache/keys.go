package cache

import (
	"fmt"

	"github.com/kapu/sales-skills-engine/internal/constants"
	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/internal/util"
)

// Keys derives content-addressed cache keys. Every transcript passed in must
// already be normalized with util.NormalizeTranscript.
type Keys struct {
	Version string
}

func NewKeys(version string) Keys {
	if version == "" {
		version = constants.DefaultCacheVersion
	}
	return Keys{Version: version}
}

type qualifyKeyInput struct {
	V          string   `json:"v"`
	Transcript string   `json:"transcript"`
	SellerID   string   `json:"sellerId"`
	AllSkills  []string `json:"allSkills"`
}

type skillKeyInput struct {
	V          string `json:"v"`
	SellerID   string `json:"sellerId"`
	SkillName  string `json:"skillName"`
	Transcript string `json:"transcript"`
}

type roleplayKeyInput struct {
	V          string               `json:"v"`
	Transcript string               `json:"transcript"`
	Skills     []domain.ScoredSkill `json:"skills"`
}

func (k Keys) Key(namespace, hash string) string {
	return fmt.Sprintf("v%s:%s:%s", k.Version, namespace, hash)
}

// QualifyKey identifies a qualification result.
func (k Keys) QualifyKey(transcript, sellerID string, allSkills []string) (string, error) {
	if allSkills == nil {
		allSkills = []string{}
	}
	hash, err := util.StableHash(qualifyKeyInput{V: k.Version, Transcript: transcript, SellerID: sellerID, AllSkills: allSkills})
	if err != nil {
		return "", err
	}
	return k.Key(constants.NamespaceQualify, hash), nil
}

// SkillKeyHash is the per-skill hash shared by the judge and coach stages.
func (k Keys) SkillKeyHash(transcript, sellerID, skillName string) (string, error) {
	return util.StableHash(skillKeyInput{V: k.Version, SellerID: sellerID, SkillName: skillName, Transcript: transcript})
}

func (k Keys) AssessmentKey(skillKeyHash string) string {
	return k.Key(constants.NamespaceAssessment, skillKeyHash)
}

// RoleplayKey identifies a roleplay coaching batch.
func (k Keys) RoleplayKey(transcript string, skills []domain.ScoredSkill) (string, error) {
	if skills == nil {
		skills = []domain.ScoredSkill{}
	}
	hash, err := util.StableHash(roleplayKeyInput{V: k.Version, Transcript: transcript, Skills: skills})
	if err != nil {
		return "", err
	}
	return k.Key(constants.NamespaceRoleplay, hash), nil
}
