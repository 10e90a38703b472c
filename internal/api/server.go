package api

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dca-automation/internal/config"
	"dca-automation/internal/models"
	"dca-automation/internal/ratelimit"
	"dca-automation/internal/telemetry"
	"dca-automation/internal/workflow"
)

// SignerHeader carries the per-request signer address supplied by the wallet
// layer. Its absence is a normal input: the run degrades to simulated mode.
const SignerHeader = "X-Signer-Address"

const maxBodyBytes = 1 << 20

// Creator runs the job-creation workflow. Implemented by *workflow.Service.
type Creator interface {
	Create(ctx context.Context, req models.PlanRequest, signerAddress string) (workflow.Result, error)
}

// RecordFinder looks up previously created automations for idempotent replay.
type RecordFinder interface {
	FindByPlanID(ctx context.Context, planID string) (models.Automation, bool, error)
}

// Locker serializes concurrent creation attempts per plan.
type Locker interface {
	Acquire(ctx context.Context, planID string) (bool, error)
	Release(ctx context.Context, planID string) error
}

// Server wires HTTP handlers for the automation API.
type Server struct {
	cfg     config.Config
	flow    Creator
	records RecordFinder
	lock    Locker
	limiter *ratelimit.TokenBucket
	log     *zap.Logger
}

// New constructs the API server. records, lock, and limiter may be nil.
func New(cfg config.Config, flow Creator, records RecordFinder, lock Locker, limiter *ratelimit.TokenBucket, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		flow:    flow,
		records: records,
		lock:    lock,
		limiter: limiter,
		log:     log,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Post("/automations", s.handleCreate)
	r.Get("/automations/{planID}", s.handleGet)
	return r
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, categoryValidation, "unable to read request body", nil)
		return
	}

	req, fieldErrs := parsePlanRequest(body)
	if len(fieldErrs) > 0 {
		telemetry.ValidationFailures.Inc()
		writeError(w, http.StatusBadRequest, categoryValidation, joinFieldErrors(fieldErrs), fieldErrs)
		return
	}

	if s.limiter != nil {
		allowed, tokens, err := s.limiter.Allow(r.Context(), "rl:"+strings.ToLower(req.UserAddress))
		if err != nil {
			writeError(w, http.StatusInternalServerError, categoryInternal, "rate limiter unavailable", nil)
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			if retry := s.limiter.RetryAfter(tokens); retry > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			}
			writeError(w, http.StatusTooManyRequests, categoryRateLimit, "too many requests for this address", nil)
			return
		}
	}

	// A completed plan is answered idempotently instead of re-registering.
	if s.records != nil {
		if existing, found, err := s.records.FindByPlanID(r.Context(), req.PlanID); err != nil {
			s.log.Warn("record lookup failed", zap.String("plan_id", req.PlanID), zap.Error(err))
		} else if found {
			writeJSON(w, http.StatusOK, successEnvelope{
				Success: true,
				Data:    dataFromRecord(existing),
				Message: "automation job already exists for this plan",
			})
			return
		}
	}

	if s.lock != nil {
		acquired, err := s.lock.Acquire(r.Context(), req.PlanID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, categoryInternal, "plan lock unavailable", nil)
			return
		}
		if !acquired {
			telemetry.ConflictRejects.Inc()
			writeError(w, http.StatusConflict, categoryConflict, "job creation already in progress for this plan", nil)
			return
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(r.Context()), req.PlanID); err != nil {
				s.log.Warn("plan lock release failed", zap.String("plan_id", req.PlanID), zap.Error(err))
			}
		}()
	}

	signer := r.Header.Get(SignerHeader)
	if signer == "" {
		signer = s.cfg.SignerAddress
	}

	res, err := s.flow.Create(r.Context(), req, signer)
	if err != nil {
		s.log.Error("job creation failed",
			zap.String("plan_id", req.PlanID),
			zap.String("mode", string(res.Mode)),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, categoryInternal, err.Error(), nil)
		return
	}

	s.log.Info("automation job created",
		zap.String("plan_id", res.PlanID),
		zap.String("job_id", res.JobID),
		zap.String("mode", string(res.Mode)))

	writeJSON(w, http.StatusOK, successEnvelope{
		Success: true,
		Data:    dataFromResult(res),
		Message: "DCA automation job created",
		Warning: res.Warning,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if s.records == nil {
		writeError(w, http.StatusNotFound, categoryNotFound, "automation records are not enabled", nil)
		return
	}
	automation, found, err := s.records.FindByPlanID(r.Context(), planID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, categoryInternal, "record lookup failed", nil)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, categoryNotFound, "no automation recorded for this plan", nil)
		return
	}
	writeJSON(w, http.StatusOK, automation)
}
