package assessment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/internal/util"
	"github.com/kapu/sales-skills-engine/pkg/errors"
)

// CoachRoleplay coaches skills that were already scored elsewhere, such as
// on a roleplay results page. Skills missing from the rubric are skipped.
func (s *Service) CoachRoleplay(ctx context.Context, req RoleplayRequest) (*RoleplayResult, error) {
	if strings.TrimSpace(req.Transcript) == "" || len(req.Skills) == 0 {
		return nil, errors.NewValidationError("Missing 'transcript' or 'skills' array.", "body", nil)
	}
	start := time.Now()
	defer func() { s.metrics.ObserveStage(StageRoleplay, time.Since(start)) }()

	transcript := util.NormalizeTranscript(req.Transcript)
	key, err := s.cache.Keys().RoleplayKey(transcript, req.Skills)
	if err != nil {
		return nil, err
	}

	var cached RoleplayResult
	if s.cache.GetJSON(ctx, key, &cached) {
		s.logger.Info("Cache HIT for roleplay coaching", zap.Int("skills", len(req.Skills)))
		cached.Meta.KVHit = true
		cached.Meta.DurationMS = time.Since(start).Milliseconds()
		return &cached, nil
	}

	set, err := s.rubrics.Load(ctx, s.cfg.RubricSet)
	if err != nil {
		return nil, err
	}

	type slot struct {
		assessment domain.Assessment
		ok         bool
	}
	slots := make([]slot, len(req.Skills))

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(s.cfg.Concurrency)
	for idx, scored := range req.Skills {
		resolved, ok := set.Resolve(scored.Skill)
		if !ok {
			s.logger.Warn("Skipping roleplay skill missing from rubric", zap.String("skill", scored.Skill))
			continue
		}
		p.Go(func(ctx context.Context) error {
			userPrompt, err := s.prompts.BuildRoleplayCoachPrompt(scored.Skill, scored.Score, resolved.Rubric, transcript, s.cfg.Business)
			if err != nil {
				return err
			}
			content, err := s.coachCompletion(ctx, StageRoleplay, userPrompt)
			if err != nil {
				return err
			}
			a := domain.Assessment{Skill: scored.Skill, Rating: scored.Score}
			a.ApplyCoaching(s.parseCoaching(scored.Skill, content))
			slots[idx] = slot{assessment: a, ok: true}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	assessments := make([]domain.Assessment, 0, len(slots))
	for _, sl := range slots {
		if sl.ok {
			assessments = append(assessments, sl.assessment)
		}
	}

	result := &RoleplayResult{
		Assessments: assessments,
		Meta: RoleplayMeta{
			DurationMS: time.Since(start).Milliseconds(),
			RunID:      uuid.NewString(),
			KVHit:      false,
		},
	}
	s.persist(ctx, key, result, s.cfg.RoleplayTTL, zap.String("stage", StageRoleplay))
	return result, nil
}
