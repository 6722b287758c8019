package assessment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/constants"
	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/internal/prompt"
	"github.com/kapu/sales-skills-engine/internal/service/ai"
	"github.com/kapu/sales-skills-engine/internal/util"
	"github.com/kapu/sales-skills-engine/pkg/errors"
)

// Judge grades one skill. A cached assessment short-circuits the LLM call.
func (s *Service) Judge(ctx context.Context, req JudgeRequest) (*domain.JudgeResult, error) {
	if strings.TrimSpace(req.Transcript) == "" || req.Skill == "" || req.SellerID == "" {
		return nil, errors.NewValidationError("Missing 'transcript', 'skill', or 'sellerId'.", "body", nil)
	}
	start := time.Now()
	defer func() { s.metrics.ObserveStage(StageJudge, time.Since(start)) }()

	transcript := util.NormalizeTranscript(req.Transcript)
	hash, err := s.cache.Keys().SkillKeyHash(transcript, req.SellerID, req.Skill)
	if err != nil {
		return nil, err
	}

	var cached domain.Assessment
	if s.cache.GetJSON(ctx, s.cache.Keys().AssessmentKey(hash), &cached) {
		if ratingMatchesChecks(&cached) {
			s.logger.Info("Cache HIT for skill", zap.String("skill", req.Skill))
			return judgeResultFromCache(hash, req.Skill, &cached), nil
		}
		s.logger.Warn("Cached rating disagrees with its level checks, grading again",
			zap.String("skill", req.Skill),
			zap.Int("rating", cached.Rating),
		)
	} else {
		s.logger.Info("Cache MISS for skill", zap.String("skill", req.Skill))
	}

	set, err := s.rubrics.Load(ctx, s.cfg.RubricSet)
	if err != nil {
		return nil, err
	}
	resolved, ok := set.Resolve(req.Skill)
	if !ok {
		return nil, errors.NewUnresolvedSkillError(req.Skill)
	}

	userPrompt, err := s.prompts.BuildJudgePrompt(req.SellerID, resolved.SkillName, transcript, resolved.Rubric)
	if err != nil {
		return nil, err
	}

	content, err := s.complete(ctx, StageJudge, s.cfg.JudgeModel, prompt.JudgeSystem, userPrompt,
		constants.ModelParams.JudgeTemperature, constants.ModelParams.JudgeMaxTokens)
	if err != nil {
		return nil, err
	}

	raw, levelChecks, err := parseJudgeOutput(content)
	if err != nil {
		return nil, errors.NewJudgeParseError(resolved.SkillName, util.TruncateString(content, 400), err)
	}

	rating := domain.ComputeHighestDemonstrated(levelChecks)
	s.metrics.ObserveRating(StageJudge, rating)

	return &domain.JudgeResult{
		SkillKeyHash: hash,
		SkillName:    resolved.SkillName,
		Rating:       rating,
		LevelChecks:  levelChecks,
		RawJudge:     raw,
		Meta:         domain.JudgeMeta{KVHit: false},
	}, nil
}

// ratingMatchesChecks holds for entries whose rating is exactly what their
// level checks compute to.
func ratingMatchesChecks(a *domain.Assessment) bool {
	return a.Rating == domain.ComputeHighestDemonstrated(a.LevelChecks)
}

func judgeResultFromCache(hash, skill string, cached *domain.Assessment) *domain.JudgeResult {
	levelChecks := cached.LevelChecks
	if levelChecks == nil {
		levelChecks = []domain.LevelCheckGroup{}
	}
	return &domain.JudgeResult{
		SkillKeyHash: hash,
		SkillName:    skill,
		Rating:       cached.Rating,
		LevelChecks:  levelChecks,
		Assessment:   cached,
		Meta:         domain.JudgeMeta{KVHit: true},
	}
}

// parseJudgeOutput extracts the JSON object from the model reply and decodes
// level_checks. Unknown fields are allowed; a missing or mistyped
// level_checks is not.
func parseJudgeOutput(content string) (json.RawMessage, []domain.LevelCheckGroup, error) {
	raw := ai.ExtractJSON(content)
	if raw == nil {
		return nil, nil, fmt.Errorf("no JSON object in judge output")
	}

	var parsed struct {
		LevelChecks *[]domain.LevelCheckGroup `json:"level_checks"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("decode level_checks: %w", err)
	}
	if parsed.LevelChecks == nil {
		return nil, nil, fmt.Errorf("level_checks missing")
	}

	checks := *parsed.LevelChecks
	if checks == nil {
		checks = []domain.LevelCheckGroup{}
	}
	return raw, checks, nil
}
