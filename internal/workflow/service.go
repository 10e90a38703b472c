// Package workflow runs the job-creation pipeline for a validated DCA plan:
// mode selection, artifact generation, content-addressed publication, job
// registration, and the best-effort plan linkage update.
package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dca-automation/internal/cas"
	"dca-automation/internal/models"
	"dca-automation/internal/scheduler"
	"dca-automation/internal/script"
	"dca-automation/internal/store"
	"dca-automation/internal/telemetry"
)

// Registrar registers a recurring job with the external scheduler.
type Registrar interface {
	Register(ctx context.Context, p scheduler.RegisterParams) (scheduler.Registration, error)
}

// LinkageStore updates the external plan record with the created job.
type LinkageStore interface {
	UpdateLinkage(ctx context.Context, planID, jobID, ipfsLink string) error
}

// Recorder persists local automation records and audit events.
// Implemented by *store.Store; nil disables recording.
type Recorder interface {
	CreateAutomation(ctx context.Context, p store.CreateAutomationParams) (models.Automation, error)
	AppendAudit(ctx context.Context, planID, event, detail string) error
}

// Result is the outcome of one completed pipeline run. Warning distinguishes
// "fully consistent" from "job created, linkage pending" without failing the
// run.
type Result struct {
	Mode        models.ExecutionMode
	PlanID      string
	JobID       string
	ScriptRef   models.ContentRef
	MetadataRef models.ContentRef
	Executions  int
	JobData     map[string]any
	Warning     string
}

// Service orchestrates the pipeline. Steps run strictly in order; a publish
// failure aborts before registration, a registration failure aborts before
// the linkage update, and a linkage failure downgrades to a warning.
type Service struct {
	publisher cas.Store
	registrar Registrar
	plans     LinkageStore
	records   Recorder
	log       *zap.Logger
	now       func() time.Time
}

// New wires the pipeline. records may be nil.
func New(publisher cas.Store, registrar Registrar, plans LinkageStore, records Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		publisher: publisher,
		registrar: registrar,
		plans:     plans,
		records:   records,
		log:       log,
		now:       time.Now,
	}
}

// SelectMode classifies the request by its signing capability. Absence is a
// normal input, not an error: it degrades the run to simulated execution.
func SelectMode(signerAddress string) models.ExecutionMode {
	if signerAddress == "" {
		return models.ModeSimulated
	}
	return models.ModeLive
}

// Create runs the pipeline for req. signerAddress empty selects simulated
// mode: publication and registration are synthesized locally, yet the
// linkage update still runs so downstream plan records stay exercised.
func (s *Service) Create(ctx context.Context, req models.PlanRequest, signerAddress string) (Result, error) {
	mode := SelectMode(signerAddress)
	res := Result{Mode: mode, PlanID: req.PlanID}

	artifact, err := script.Generate(req)
	if err != nil {
		return res, err
	}

	publisher := s.publisher
	if mode == models.ModeSimulated {
		publisher = cas.Simulator{}
	}

	res.ScriptRef, err = publisher.Put(ctx, req.PlanID+"-dca-script.js", []byte(artifact.Script))
	if err != nil {
		telemetry.UpstreamFailures.WithLabelValues("publish").Inc()
		return res, &UpstreamError{Op: "publish script", Err: err}
	}
	res.MetadataRef, err = publisher.Put(ctx, req.PlanID+"-dca-metadata.json", artifact.MetadataJSON)
	if err != nil {
		telemetry.UpstreamFailures.WithLabelValues("publish").Inc()
		return res, &UpstreamError{Op: "publish metadata", Err: err}
	}
	s.audit(ctx, req.PlanID, "published", fmt.Sprintf("script=%s metadata=%s", res.ScriptRef.CID, res.MetadataRef.CID))

	res.Executions = scheduler.Executions(req.DurationWeeks, req.IntervalMinutes)
	switch mode {
	case models.ModeLive:
		reg, err := s.registrar.Register(ctx, scheduler.RegisterParams{
			PlanID:          req.PlanID,
			OwnerAddress:    req.UserAddress,
			ScriptCID:       res.ScriptRef.CID,
			ScriptURL:       res.ScriptRef.URL,
			IntervalMinutes: req.IntervalMinutes,
			Executions:      res.Executions,
		})
		if err != nil {
			telemetry.UpstreamFailures.WithLabelValues("register").Inc()
			return res, &UpstreamError{Op: "register job", Err: err}
		}
		res.JobID = reg.JobID
		res.JobData = reg.Raw
	case models.ModeSimulated:
		if res.Executions < 1 {
			return res, &UpstreamError{Op: "register job", Err: fmt.Errorf("plan yields %d executions: interval exceeds the total duration", res.Executions)}
		}
		res.JobID = scheduler.SimulatedJobID(req.PlanID, s.now())
		res.Warning = "simulated execution: no signing capability supplied, job was not registered with the scheduler"
		telemetry.SimulatedRuns.Inc()
	}
	s.audit(ctx, req.PlanID, "registered", fmt.Sprintf("job_id=%s mode=%s executions=%d", res.JobID, mode, res.Executions))

	s.record(ctx, req, res, mode, signerAddress)

	// The job already exists at this point; a linkage failure must not
	// unwind it. Surface it as a warning and leave reconciliation to an
	// out-of-band process.
	if err := s.plans.UpdateLinkage(ctx, req.PlanID, res.JobID, res.ScriptRef.URL); err != nil {
		telemetry.LinkageWarnings.Inc()
		s.log.Warn("plan linkage update failed",
			zap.String("plan_id", req.PlanID),
			zap.String("job_id", res.JobID),
			zap.Error(err))
		s.audit(ctx, req.PlanID, "linkage_failed", err.Error())
		warning := fmt.Sprintf("plan linkage update failed: %v", err)
		if res.Warning != "" {
			res.Warning = res.Warning + "; " + warning
		} else {
			res.Warning = warning
		}
	} else {
		s.audit(ctx, req.PlanID, "linked", fmt.Sprintf("job_id=%s", res.JobID))
	}

	telemetry.AutomationsCreated.Inc()
	return res, nil
}

func (s *Service) record(ctx context.Context, req models.PlanRequest, res Result, mode models.ExecutionMode, signerAddress string) {
	if s.records == nil {
		return
	}
	owner := signerAddress
	if owner == "" {
		owner = req.UserAddress
	}
	if _, err := s.records.CreateAutomation(ctx, store.CreateAutomationParams{
		PlanID:       req.PlanID,
		JobID:        res.JobID,
		Mode:         mode,
		OwnerAddress: owner,
		ScriptRef:    res.ScriptRef,
		MetadataRef:  res.MetadataRef,
		Executions:   res.Executions,
	}); err != nil {
		s.log.Warn("record automation failed", zap.String("plan_id", req.PlanID), zap.Error(err))
	}
}

func (s *Service) audit(ctx context.Context, planID, event, detail string) {
	if s.records == nil {
		return
	}
	if err := s.records.AppendAudit(ctx, planID, event, detail); err != nil {
		s.log.Warn("append audit failed", zap.String("plan_id", planID), zap.String("event", event), zap.Error(err))
	}
}
