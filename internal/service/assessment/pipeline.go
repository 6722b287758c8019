package assessment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/pkg/errors"
)

type judgeOutcome struct {
	result *domain.JudgeResult
	err    error
}

type coachOutcome struct {
	assessment *domain.Assessment
	err        error
}

// Assess judges every skill, coaches the ones that were not cached and
// returns cached assessments first, then new ones, each group in input order.
// A failing skill is reported in Errors; the run only fails when no skill
// succeeds.
func (s *Service) Assess(ctx context.Context, req AssessRequest) (*RunResult, error) {
	if strings.TrimSpace(req.Transcript) == "" || req.SellerID == "" || len(req.Skills) == 0 {
		return nil, errors.NewValidationError("Missing 'transcript', 'sellerId', or 'skills'.", "body", nil)
	}
	start := time.Now()
	runID := uuid.NewString()
	defer func() { s.metrics.ObserveStage(StageAssess, time.Since(start)) }()

	judged := make([]judgeOutcome, len(req.Skills))
	jp := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	for idx, skill := range req.Skills {
		jp.Go(func() {
			res, err := s.Judge(ctx, JudgeRequest{Transcript: req.Transcript, Skill: skill, SellerID: req.SellerID})
			judged[idx] = judgeOutcome{result: res, err: err}
		})
	}
	jp.Wait()

	var (
		hits     []domain.Assessment
		misses   []int
		skillErr []SkillError
		firstErr error
	)
	fail := func(skill, stage string, err error) {
		reason := failureReason(err)
		s.metrics.RecordSkillFailure(stage)
		s.logger.Warn("Skill failed in run",
			zap.String("run_id", runID),
			zap.String("skill", skill),
			zap.String("stage", stage),
			zap.String("reason", reason),
			zap.Error(err),
		)
		skillErr = append(skillErr, SkillError{Skill: skill, Stage: stage, Reason: reason, Error: err.Error()})
		if firstErr == nil {
			firstErr = err
		}
	}

	for idx, out := range judged {
		switch {
		case out.err != nil:
			fail(req.Skills[idx], StageJudge, out.err)
		case out.result.Meta.KVHit && out.result.Assessment != nil:
			hits = append(hits, *out.result.Assessment)
		default:
			misses = append(misses, idx)
		}
	}

	coached := make([]coachOutcome, len(misses))
	cp := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	for i, idx := range misses {
		jr := judged[idx].result
		cp.Go(func() {
			rating := float64(jr.Rating)
			a, err := s.Coach(ctx, CoachRequest{
				SkillName:    jr.SkillName,
				Rating:       &rating,
				LevelChecks:  jr.LevelChecks,
				SkillKeyHash: jr.SkillKeyHash,
			})
			coached[i] = coachOutcome{assessment: a, err: err}
		})
	}
	cp.Wait()

	assessments := make([]domain.Assessment, 0, len(req.Skills))
	assessments = append(assessments, hits...)
	for i, out := range coached {
		if out.err != nil {
			fail(req.Skills[misses[i]], StageCoach, out.err)
			continue
		}
		assessments = append(assessments, *out.assessment)
	}

	if len(assessments) == 0 {
		return nil, firstErr
	}
	if skillErr == nil {
		skillErr = []SkillError{}
	}

	s.logger.Info("Assessment run complete",
		zap.String("run_id", runID),
		zap.Int("skills", len(req.Skills)),
		zap.Int("kv_hits", len(hits)),
		zap.Int("kv_misses", len(misses)),
		zap.Int("failed", len(skillErr)),
	)

	return &RunResult{
		Assessments: assessments,
		Errors:      skillErr,
		Meta: RunMeta{
			DurationMS: time.Since(start).Milliseconds(),
			RunID:      runID,
			KVHits:     len(hits),
			KVMisses:   len(misses),
		},
	}, nil
}

func failureReason(err error) string {
	switch {
	case errors.IsUnresolvedSkill(err):
		return FailureUnresolved
	case errors.IsJudgeParse(err):
		return FailureParse
	case errors.IsUpstream(err):
		return FailureUpstream
	default:
		return FailureOther
	}
}
