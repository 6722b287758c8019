package assessment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/internal/service/ai"
	"github.com/kapu/sales-skills-engine/internal/util"
	"github.com/kapu/sales-skills-engine/pkg/errors"
)

// Coach turns a judge result into a full Assessment and caches it under the
// skill's assessment key. Unparsable coach output yields empty coaching.
func (s *Service) Coach(ctx context.Context, req CoachRequest) (*domain.Assessment, error) {
	if req.SkillName == "" || req.Rating == nil || req.LevelChecks == nil || req.SkillKeyHash == "" {
		return nil, errors.NewValidationError("Missing required data for coaching.", "body", nil)
	}
	if *req.Rating < domain.MinRating || *req.Rating > domain.MaxRating {
		return nil, errors.NewValidationError(
			fmt.Sprintf("'rating' must be between %d and %d.", domain.MinRating, domain.MaxRating), "rating", *req.Rating)
	}
	rating := int(*req.Rating)
	if derived := domain.ComputeHighestDemonstrated(req.LevelChecks); derived != rating {
		return nil, errors.NewValidationError(
			fmt.Sprintf("'rating' %d does not match levelChecks, which give %d.", rating, derived), "rating", rating)
	}

	start := time.Now()
	defer func() { s.metrics.ObserveStage(StageCoach, time.Since(start)) }()

	userPrompt, title, err := s.prompts.BuildCoachPrompt(req.SkillName, rating, req.LevelChecks, s.cfg.Business)
	if err != nil {
		return nil, err
	}

	content, err := s.coachCompletion(ctx, StageCoach, userPrompt)
	if err != nil {
		return nil, err
	}

	result := &domain.Assessment{
		Skill:            req.SkillName,
		Rating:           rating,
		ImprovementTitle: title,
		LevelChecks:      req.LevelChecks,
	}
	result.ApplyCoaching(s.parseCoaching(req.SkillName, content))

	s.persist(ctx, s.cache.Keys().AssessmentKey(req.SkillKeyHash), result, s.cfg.AssessmentTTL,
		zap.String("skill", req.SkillName))
	return result, nil
}

func (s *Service) parseCoaching(skill, content string) domain.Coaching {
	var coaching domain.Coaching
	if !ai.DecodeJSON(content, &coaching) {
		s.logger.Warn("Coach output unparsable, using empty coaching",
			zap.String("skill", skill),
			zap.String("raw", util.TruncateString(content, 200)),
		)
		return domain.Coaching{}
	}
	return coaching
}
