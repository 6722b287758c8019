package assessment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/constants"
	"github.com/kapu/sales-skills-engine/internal/prompt"
	"github.com/kapu/sales-skills-engine/internal/service/ai"
	"github.com/kapu/sales-skills-engine/internal/service/cache"
	"github.com/kapu/sales-skills-engine/internal/service/rubric"
	"github.com/kapu/sales-skills-engine/pkg/metrics"
)

// Stage names used in logs, metrics and LLM error hints.
const (
	StageQualify  = "qualify"
	StageJudge    = "judge"
	StageCoach    = "coach"
	StageRoleplay = "coach-roleplay"
	StageAssess   = "assess"
)

type Config struct {
	JudgeModel    string
	CoachModel    string
	RubricSet     string
	QualifyTTL    time.Duration
	AssessmentTTL time.Duration
	RoleplayTTL   time.Duration
	Concurrency   int
	Business      prompt.BusinessContext
}

// Service runs the qualify, judge and coach stages and the batch pipeline
// built on them.
type Service struct {
	llm     ai.Completer
	cache   *cache.Service
	rubrics rubric.Source
	prompts *prompt.PromptBuilder
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Manager
}

func NewService(llm ai.Completer, cacheSvc *cache.Service, rubrics rubric.Source, cfg Config, logger *zap.Logger, m *metrics.Manager) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = constants.PipelineConfig.DefaultConcurrency
	}
	if cfg.RubricSet == "" {
		cfg.RubricSet = constants.DefaultRubricSet
	}
	return &Service{
		llm:     llm,
		cache:   cacheSvc,
		rubrics: rubrics,
		prompts: prompt.DefaultPromptBuilder(),
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

func (s *Service) complete(ctx context.Context, stage, model, system, user string, temperature float64, maxTokens int64) (string, error) {
	resp, err := s.llm.Complete(ctx, ai.ChatRequest{
		Model:       model,
		System:      system,
		User:        user,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		JSONMode:    true,
	}, stage)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (s *Service) coachCompletion(ctx context.Context, stage, user string) (string, error) {
	return s.complete(ctx, stage, s.cfg.CoachModel, prompt.CoachSystem, user,
		constants.ModelParams.CoachTemperature, constants.ModelParams.CoachMaxTokens)
}

// persist writes value and only logs failures.
func (s *Service) persist(ctx context.Context, key string, value any, ttl time.Duration, fields ...zap.Field) {
	if err := s.cache.PutJSON(ctx, key, value, ttl); err != nil {
		s.logger.Warn("Cache write dropped", append(fields, zap.String("key", key), zap.Error(err))...)
		return
	}
	s.logger.Info("Cache SET", append(fields, zap.String("key", key))...)
}
