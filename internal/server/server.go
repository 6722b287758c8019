package server

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/constants"
	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/internal/service/assessment"
	"github.com/kapu/sales-skills-engine/pkg/errors"
	"github.com/kapu/sales-skills-engine/pkg/metrics"
)

// Assessor is the set of operations exposed over HTTP.
type Assessor interface {
	Qualify(ctx context.Context, req assessment.QualifyRequest) (*domain.Qualification, error)
	Judge(ctx context.Context, req assessment.JudgeRequest) (*domain.JudgeResult, error)
	Coach(ctx context.Context, req assessment.CoachRequest) (*domain.Assessment, error)
	Assess(ctx context.Context, req assessment.AssessRequest) (*assessment.RunResult, error)
	CoachRoleplay(ctx context.Context, req assessment.RoleplayRequest) (*assessment.RoleplayResult, error)
	CacheStatus(ctx context.Context, req assessment.CacheStatusRequest) (map[string]bool, error)
}

type Config struct {
	Addr        string
	AllowOrigin string
}

type Server struct {
	h        *server.Hertz
	cfg      Config
	assessor Assessor
	logger   *zap.Logger
	metrics  *metrics.Manager
}

func New(cfg Config, assessor Assessor, logger *zap.Logger, m *metrics.Manager) *Server {
	if cfg.AllowOrigin == "" {
		cfg.AllowOrigin = "*"
	}
	h := server.New(
		server.WithHostPorts(cfg.Addr),
		server.WithExitWaitTime(constants.ServerConfig.ShutdownTimeout),
	)

	s := &Server{
		h:        h,
		cfg:      cfg,
		assessor: assessor,
		logger:   logger,
		metrics:  m,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.h.Use(s.observe, s.cors)

	s.h.GET("/", health)
	s.h.GET("/healthz", health)

	s.h.POST("/qualify-skills", handle(s, s.assessor.Qualify))
	s.h.POST("/judge", handle(s, s.assessor.Judge))
	s.h.POST("/coach", handle(s, s.assessor.Coach))
	s.h.POST("/coach-roleplay", handle(s, s.assessor.CoachRoleplay))
	s.h.POST("/check-cache-status", handle(s, s.assessor.CacheStatus))
	s.h.POST("/assess", handle(s, s.assessor.Assess))
	// browser clients post full assessments to the root
	s.h.POST("/", handle(s, s.assessor.Assess))

	s.h.NoRoute(func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "Not Found"})
	})
}

// Hertz exposes the underlying engine, mainly for tests.
func (s *Server) Hertz() *server.Hertz {
	return s.h
}

// Run blocks serving HTTP until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
	return s.h.Run()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.h.Shutdown(ctx)
}

func health(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, utils.H{"ok": true})
}

// handle decodes the JSON body into Req, runs fn and writes the result. An
// unreadable body decodes as the zero Req so fn reports the missing fields.
func handle[Req any, Resp any](s *Server, fn func(context.Context, Req) (Resp, error)) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		var req Req
		if body := ctx.Request.Body(); len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				s.logger.Debug("Request body not decodable", zap.String("path", string(ctx.Path())), zap.Error(err))
				var zero Req
				req = zero
			}
		}

		resp, err := fn(c, req)
		if err != nil {
			s.writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	}
}

func (s *Server) writeError(ctx *app.RequestContext, err error) {
	status := errors.HTTPStatus(err)
	switch {
	case status < consts.StatusInternalServerError:
	case errors.IsUpstream(err):
		s.logger.Warn("LLM provider rejected request",
			zap.String("path", string(ctx.Path())),
			zap.Error(err),
		)
	default:
		s.logger.Error("Request failed",
			zap.String("path", string(ctx.Path())),
			zap.Error(err),
		)
	}
	ctx.JSON(status, utils.H{"error": err.Error()})
}

// cors decorates every response and answers preflight requests directly.
func (s *Server) cors(c context.Context, ctx *app.RequestContext) {
	ctx.Response.Header.Set("Access-Control-Allow-Origin", s.cfg.AllowOrigin)
	ctx.Response.Header.Set("Vary", "Origin")

	if string(ctx.Method()) == consts.MethodOptions {
		ctx.Response.Header.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		ctx.Response.Header.Set("Access-Control-Max-Age", constants.ServerConfig.PreflightMaxAge)
		ctx.AbortWithStatus(consts.StatusNoContent)
		return
	}
	ctx.Next(c)
}

func (s *Server) observe(c context.Context, ctx *app.RequestContext) {
	start := time.Now()
	ctx.Next(c)

	route := ctx.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := ctx.Response.StatusCode()
	s.metrics.RecordHTTPRequest(route, string(ctx.Method()), strconv.Itoa(status), time.Since(start))
	s.logger.Debug("HTTP request",
		zap.String("method", string(ctx.Method())),
		zap.String("path", string(ctx.Path())),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)),
	)
}
