package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/config"
	"github.com/kapu/sales-skills-engine/internal/service/assessment"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Provider:   config.ProviderOpenRouter,
			APIKey:     "sk-test",
			BaseURL:    "http://127.0.0.1:1",
			Timeout:    time.Second,
			MaxRetries: 0,
			JudgeModel: "test/judge",
			CoachModel: "test/coach",
		},
		Cache: config.CacheConfig{
			Backend:       config.CacheBackendMemory,
			Version:       "1",
			QualifyTTL:    time.Hour,
			AssessmentTTL: time.Hour,
			RoleplayTTL:   time.Hour,
		},
		Rubric:   config.RubricConfig{DefaultSet: "rubrics:v1"},
		Coach:    config.CoachConfig{Company: "Turnitin", Vertical: "EdTech / Education"},
		Server:   config.ServerConfig{Addr: "127.0.0.1:0", AllowOrigin: "*"},
		Pipeline: config.PipelineConfig{Concurrency: 2},
	}
}

func TestBuildRejectsNilInputs(t *testing.T) {
	_, err := Build(context.Background(), nil, zap.NewNop())
	assert.Error(t, err)
	_, err = Build(context.Background(), testConfig(), nil)
	assert.Error(t, err)
}

func TestBuildWithMemoryCache(t *testing.T) {
	c, err := Build(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Server)
	w := ut.PerformRequest(c.Server.Hertz().Engine, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	status, err := c.Assessment.CacheStatus(context.Background(), assessmentStatusRequest())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Active listening": false}, status)
}

func TestBuildWithSQLiteRubrics(t *testing.T) {
	cfg := testConfig()
	cfg.Rubric.DBDriver = "sqlite"
	cfg.Rubric.DBDSN = ":memory:"

	c, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	c.Close()
}

func TestBuildFailsOnMissingRubricFile(t *testing.T) {
	cfg := testConfig()
	cfg.Rubric.File = "/nonexistent/rubrics.json"

	_, err := Build(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func assessmentStatusRequest() assessment.CacheStatusRequest {
	return assessment.CacheStatusRequest{Transcript: "Seller: hi", SellerID: "Alex", Skills: []string{"Active listening"}}
}
