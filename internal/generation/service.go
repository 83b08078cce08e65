package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/db"
	"github.com/jonathan/application-agent/internal/observability"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/state"
)

// persistTimeout bounds the save after a run, which may outlive the request.
const persistTimeout = 10 * time.Second

// Store is the persistence the service needs. *db.DB implements it.
type Store interface {
	GetUser(ctx context.Context, id string) (*db.User, error)
	SaveGeneration(ctx context.Context, in db.GenerationInput) (uuid.UUID, error)
}

// Options configure a Service.
type Options struct {
	// Store is optional. Without it requests carry their own resume and
	// profile and nothing is saved.
	Store Store
	// Runner defaults to one built from Logger and Metrics.
	Runner         *pipeline.Runner
	MaxConcurrency int64
	HaltOnErrors   bool
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// Service runs generation requests.
type Service struct {
	store   Store
	runner  *pipeline.Runner
	plans   map[state.DocumentType]pipeline.Plan
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewService builds every plan once and fails if any of them is invalid.
func NewService(deps agents.Deps, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	if deps.Metrics == nil {
		deps.Metrics = opts.Metrics
	}
	if deps.Users == nil && opts.Store != nil {
		deps.Users = opts.Store
	}
	d := deps.WithDefaults()

	halt := pipeline.HaltNever
	if opts.HaltOnErrors {
		halt = pipeline.HaltOnErrors
	}
	plans, err := Plans(&d, halt)
	if err != nil {
		return nil, fmt.Errorf("failed to build plans: %w", err)
	}

	runner := opts.Runner
	if runner == nil {
		runner = pipeline.NewRunner(pipeline.Options{
			MaxConcurrency: opts.MaxConcurrency,
			Logger:         logger,
			Metrics:        opts.Metrics,
		})
	}
	return &Service{
		store:   opts.Store,
		runner:  runner,
		plans:   plans,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Plan returns the plan run for t.
func (s *Service) Plan(t state.DocumentType) (pipeline.Plan, bool) {
	p, ok := s.plans[t]
	return p, ok
}

// Generate runs req to completion. The returned error covers only problems
// that stop the run from starting; stage failures are in Result.Errors.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	plan, st, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	final := s.runner.Run(ctx, plan, st)
	res := NewResult(final)
	res.GenerationID = s.persist(context.WithoutCancel(ctx), final)
	return res, nil
}

// Update is one streamed step of a run. Result is set only on the terminal
// update, after the run has been stored.
type Update struct {
	pipeline.Event
	Result *Result `json:"result,omitempty"`
}

// Stream runs req in the background. Updates arrive in plan order; the
// terminal update is sent after the result has been stored. The run is
// stored even when ctx is cancelled and nobody reads the updates.
func (s *Service) Stream(ctx context.Context, req Request) (<-chan Update, error) {
	plan, st, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	updates := make(chan Update, len(plan.Units)+1)
	go func() {
		defer close(updates)
		var terminal pipeline.Event
		final := s.runner.RunWithProgress(ctx, plan, st, func(ev pipeline.Event) {
			if ev.Final != nil {
				terminal = ev
				return
			}
			deliver(ctx, updates, Update{Event: ev})
		})
		res := NewResult(final)
		res.GenerationID = s.persist(context.WithoutCancel(ctx), final)
		deliver(ctx, updates, Update{Event: terminal, Result: res})
	}()
	return updates, nil
}

// deliver sends u unless ctx is done and the channel is full.
func deliver(ctx context.Context, ch chan<- Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case ch <- u:
	case <-ctx.Done():
	}
}

func (s *Service) prepare(ctx context.Context, req Request) (pipeline.Plan, state.State, error) {
	if err := req.Validate(); err != nil {
		return pipeline.Plan{}, state.State{}, err
	}
	plan, ok := s.plans[req.DocumentType]
	if !ok {
		return pipeline.Plan{}, state.State{}, fmt.Errorf("%w: no pipeline for %q", ErrInvalidRequest, req.DocumentType)
	}

	in := req.inputs()
	if s.store != nil {
		user, err := s.store.GetUser(ctx, req.UserID)
		if err != nil {
			return pipeline.Plan{}, state.State{}, fmt.Errorf("failed to load user: %w", err)
		}
		if user == nil {
			return pipeline.Plan{}, state.State{}, ErrUserNotFound
		}
		applyUser(&in, user)
	}
	if needsResume(in.DocumentType) && in.ResumeText == "" {
		return pipeline.Plan{}, state.State{}, ErrNoResume
	}

	runID := uuid.NewString()
	s.logger.Info("generation started",
		zap.String("run_id", runID),
		zap.String("document_type", string(in.DocumentType)),
		zap.String("user_id", in.UserID))
	return plan, state.New(runID, in), nil
}

func applyUser(in *state.Inputs, u *db.User) {
	if u.HasResume() {
		in.ResumeText = u.ResumeText
	}
	if u.Name != "" {
		in.Profile.Name = u.Name
	}
	if u.Email != "" {
		in.Profile.Email = u.Email
	}
	if u.HasGitHub() {
		in.Profile.GitHubToken = u.GitHubToken
	}
	if u.GitHubUsername != "" {
		in.Profile.GitHubUsername = u.GitHubUsername
	}
}

// persist stores the run when it produced output and returns the new record
// ID. A failed save is logged and otherwise ignored.
func (s *Service) persist(ctx context.Context, st state.State) string {
	if s.store == nil || !HasOutput(st) {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	res := NewResult(st)
	in := db.GenerationInput{
		UserID:         st.Inputs.UserID,
		GenerationType: string(st.Inputs.DocumentType),
		CompanyName:    st.Inputs.CompanyName,
		JobTitle:       res.JobTitle,
		Content:        res.Content,
		Score:          res.Score,
		Payload:        payload(st),
	}
	if in.Content == "" {
		in.Content = agents.JSONText(st.Suggestions)
	}

	id, err := s.store.SaveGeneration(ctx, in)
	s.metrics.ObservePersist(in.GenerationType, err != nil)
	if err != nil {
		s.logger.Warn("failed to save generation",
			zap.String("run_id", st.RunID),
			zap.String("document_type", in.GenerationType),
			zap.Error(err))
		return ""
	}
	s.logger.Info("generation saved", zap.String("run_id", st.RunID), zap.String("generation_id", id.String()))
	return id.String()
}

// payload keeps the intermediate results worth showing in history.
func payload(st state.State) json.RawMessage {
	doc := map[string]any{"run_id": st.RunID, "errors": st.Errors}
	switch st.Inputs.DocumentType {
	case state.CoverLetter, state.ColdEmail:
		doc["job_analysis"] = st.JobAnalysis
		doc["company_research"] = st.CompanyResearch
		doc["quality_feedback"] = st.QualityFeedback
		doc["validation_passed"] = st.ValidationPassed
	case state.ResumeCustomization:
		doc["jd_analysis"] = st.JobAnalysis
		doc["matched_projects"] = st.MatchedProjects
		doc["diff_report"] = st.DiffReport
		doc["qa_results"] = st.QAResults
		doc["hallucination_check"] = st.HallucinationCheck
	case state.ResumeSuggestions:
		doc["suggestions"] = st.Suggestions
		doc["ats_feedback"] = st.ATSFeedback
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return data
}
