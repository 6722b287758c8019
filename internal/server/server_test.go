package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/internal/service/assessment"
	"github.com/kapu/sales-skills-engine/pkg/errors"
	"github.com/kapu/sales-skills-engine/pkg/metrics"
)

type fakeAssessor struct {
	lastJudge  assessment.JudgeRequest
	assessRuns int
	judgeErr   error
}

func (f *fakeAssessor) Qualify(_ context.Context, req assessment.QualifyRequest) (*domain.Qualification, error) {
	if req.Transcript == "" || req.AllSkills == nil || req.SellerID == "" {
		return nil, errors.NewValidationError("Missing 'transcript', 'allSkills', or 'sellerId'.", "body", nil)
	}
	return &domain.Qualification{
		QualifiedSkills: []domain.QualifiedSkill{{Skill: req.AllSkills[0], Cached: true}},
		SellerIdentity:  req.SellerID,
	}, nil
}

func (f *fakeAssessor) Judge(_ context.Context, req assessment.JudgeRequest) (*domain.JudgeResult, error) {
	f.lastJudge = req
	if f.judgeErr != nil {
		return nil, f.judgeErr
	}
	return &domain.JudgeResult{SkillName: req.Skill, Rating: 3, LevelChecks: []domain.LevelCheckGroup{}}, nil
}

func (f *fakeAssessor) Coach(_ context.Context, req assessment.CoachRequest) (*domain.Assessment, error) {
	if req.Rating == nil {
		return nil, errors.NewValidationError("Missing required data for coaching.", "rating", nil)
	}
	return &domain.Assessment{Skill: req.SkillName, Rating: int(*req.Rating), Strengths: []string{}}, nil
}

func (f *fakeAssessor) Assess(_ context.Context, req assessment.AssessRequest) (*assessment.RunResult, error) {
	f.assessRuns++
	return &assessment.RunResult{Assessments: []domain.Assessment{}, Errors: []assessment.SkillError{}, Meta: assessment.RunMeta{KVMisses: len(req.Skills)}}, nil
}

func (f *fakeAssessor) CoachRoleplay(_ context.Context, req assessment.RoleplayRequest) (*assessment.RoleplayResult, error) {
	return &assessment.RoleplayResult{Assessments: []domain.Assessment{}}, nil
}

func (f *fakeAssessor) CacheStatus(_ context.Context, req assessment.CacheStatusRequest) (map[string]bool, error) {
	out := make(map[string]bool, len(req.Skills))
	for _, s := range req.Skills {
		out[s] = s == "Active listening"
	}
	return out, nil
}

func newTestServer(t *testing.T, origin string) (*Server, *fakeAssessor, *metrics.Manager) {
	t.Helper()
	fake := &fakeAssessor{}
	m := metrics.NewManager()
	s := New(Config{Addr: "127.0.0.1:0", AllowOrigin: origin}, fake, zap.NewNop(), m)
	return s, fake, m
}

func postJSON(s *Server, path string, payload any) *ut.ResponseRecorder {
	buf := &bytes.Buffer{}
	if str, ok := payload.(string); ok {
		buf.WriteString(str)
	} else {
		_ = json.NewEncoder(buf).Encode(payload)
	}
	return ut.PerformRequest(s.Hertz().Engine, "POST", path,
		&ut.Body{Body: buf, Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
}

func decode(t *testing.T, w *ut.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthRoutes(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	for _, path := range []string{"/", "/healthz"} {
		w := ut.PerformRequest(s.Hertz().Engine, "GET", path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, map[string]any{"ok": true}, decode(t, w))
		assert.Equal(t, "*", w.Result().Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Result().Header.Get("Vary"))
	}
}

func TestJudgeRoute(t *testing.T) {
	s, fake, _ := newTestServer(t, "https://app.example.com")

	w := postJSON(s, "/judge", map[string]string{"transcript": "t", "skill": "Active listening", "sellerId": "Alex"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Active listening", fake.lastJudge.Skill)
	assert.Equal(t, "Alex", fake.lastJudge.SellerID)

	body := decode(t, w)
	assert.Equal(t, float64(3), body["rating"])
	assert.Equal(t, "https://app.example.com", w.Result().Header.Get("Access-Control-Allow-Origin"))
}

func TestValidationErrorIs400(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	w := postJSON(s, "/qualify-skills", map[string]any{"transcript": "t", "sellerId": "Alex"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing 'transcript', 'allSkills', or 'sellerId'.", decode(t, w)["error"])
	assert.Equal(t, "*", w.Result().Header.Get("Access-Control-Allow-Origin"))
}

func TestMalformedBodyDecodesAsEmpty(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	w := postJSON(s, "/coach", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required data for coaching.", decode(t, w)["error"])
}

func TestInternalErrorIs500(t *testing.T) {
	s, fake, _ := newTestServer(t, "")
	fake.judgeErr = fmt.Errorf("judge API call timed out after 300000ms")

	w := postJSON(s, "/judge", map[string]string{"transcript": "t", "skill": "x", "sellerId": "y"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"error": "judge API call timed out after 300000ms"}, decode(t, w))
}

func TestAssessRoutesIncludingRoot(t *testing.T) {
	s, fake, _ := newTestServer(t, "")

	for _, path := range []string{"/assess", "/"} {
		w := postJSON(s, path, map[string]any{"transcript": "t", "sellerId": "Alex", "skills": []string{"a", "b"}})
		require.Equal(t, http.StatusOK, w.Code, path)
		meta := decode(t, w)["meta"].(map[string]any)
		assert.Equal(t, float64(2), meta["kv_misses"])
	}
	assert.Equal(t, 2, fake.assessRuns)
}

func TestCheckCacheStatusRoute(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	w := postJSON(s, "/check-cache-status", map[string]any{"transcript": "t", "sellerId": "Alex", "skills": []string{"Active listening", "Closing technique"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"Active listening": true, "Closing technique": false}, decode(t, w))
}

func TestUnknownRouteIs404(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	for _, tc := range []struct{ method, path string }{{"GET", "/nope"}, {"GET", "/judge"}, {"POST", "/healthz"}} {
		w := ut.PerformRequest(s.Hertz().Engine, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
		assert.Equal(t, map[string]any{"error": "Not Found"}, decode(t, w))
		assert.Equal(t, "*", w.Result().Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestPreflight(t *testing.T) {
	s, _, _ := newTestServer(t, "")

	w := ut.PerformRequest(s.Hertz().Engine, "OPTIONS", "/judge", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	h := &w.Result().Header
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", h.Get("Vary"))
	assert.Equal(t, "POST, GET, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", h.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", h.Get("Access-Control-Max-Age"))
}

func TestRequestsAreCounted(t *testing.T) {
	s, _, m := newTestServer(t, "")

	ut.PerformRequest(s.Hertz().Engine, "GET", "/healthz", nil)
	ut.PerformRequest(s.Hertz().Engine, "GET", "/missing", nil)

	n, err := testutil.GatherAndCount(m.Registry(), "sales_skills_engine_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestServerErrorLogLevelByKind(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fake := &fakeAssessor{}
	s := New(Config{Addr: "127.0.0.1:0"}, fake, zap.New(core), metrics.NewManager())
	body := map[string]string{"transcript": "t", "skill": "Active listening", "sellerId": "Alex"}

	fake.judgeErr = errors.NewUpstreamError("judge", 429, "slow down")
	w := postJSON(s, "/judge", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "judge 429: slow down", decode(t, w)["error"])

	fake.judgeErr = fmt.Errorf("rubric store offline")
	w = postJSON(s, "/judge", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "LLM provider rejected request", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}
