package services

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-dashboard-core/api"
	"github.com/rpupo63/portfolio-dashboard-core/attachments"
	"github.com/rpupo63/portfolio-dashboard-core/errs"
	"github.com/rpupo63/portfolio-dashboard-core/models"
	"github.com/rpupo63/portfolio-dashboard-core/store"
)

// ProjectAPI is the part of the remote client the project flows use.
type ProjectAPI interface {
	ListProjects(ctx context.Context, opts api.ListOptions) ([]models.Project, error)
	CreateProject(ctx context.Context, input models.ProjectInput, plan attachments.Plan) (models.Project, error)
	UpdateProject(ctx context.Context, id int64, input models.ProjectInput, plan attachments.Plan) (models.ProjectChanges, error)
	DeleteProject(ctx context.Context, id int64) error
}

// ProjectService runs the dialog submissions: it validates locally, talks to
// the service, and changes the store only after the service confirmed.
type ProjectService struct {
	client   ProjectAPI
	store    *store.Store
	validate *validator.Validate
	logger   zerolog.Logger
}

type ServiceOption func(*ProjectService)

func WithValidator(v *validator.Validate) ServiceOption {
	return func(s *ProjectService) { s.validate = v }
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *ProjectService) { s.logger = logger }
}

func NewProjectService(client ProjectAPI, st *store.Store, opts ...ServiceOption) *ProjectService {
	s := &ProjectService{
		client:   client,
		store:    st,
		validate: models.NewValidator(),
		logger:   log.With().Str("serviceName", "projectService").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh replaces the store's collection with the service's list. On
// failure the store keeps its previous contents.
func (s *ProjectService) Refresh(ctx context.Context) ([]models.Project, error) {
	projects, err := s.client.ListProjects(ctx, api.ListOptions{})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load projects")
		return nil, err
	}
	if _, err := s.store.Dispatch(ctx, store.Load{Projects: projects}); err != nil {
		return nil, err
	}
	s.logger.Debug().Int("count", len(projects)).Msg("projects loaded")
	return projects, nil
}

// Create submits a new project with the staged uploads. Staged files that
// already exist on the service cannot be attached to a new project.
func (s *ProjectService) Create(ctx context.Context, input models.ProjectInput, staging *attachments.Staging) Outcome {
	input = input.Normalized()
	if fields := s.check(input); len(fields) > 0 {
		return Invalid(fields...)
	}

	plan, outcome, ok := s.plan(staging)
	if !ok {
		return outcome
	}
	if plan.HasExisting() {
		return Invalid(errs.FieldError{Field: "attached_files", Message: "existing files cannot be attached to a new project"})
	}

	created, err := s.client.CreateProject(ctx, input, plan)
	if err != nil {
		s.logFailure(err, "create project failed")
		return Failed(err)
	}

	if _, err := s.store.Dispatch(ctx, store.Insert{Projects: []models.Project{created}}); err != nil {
		s.logger.Error().Err(err).Int64("projectID", created.ID).Msg("created project not stored")
		return Failed(err)
	}
	s.logger.Info().Int64("projectID", created.ID).Int("uploads", len(plan.Uploads)).Msg("project created")
	return Succeeded(&created)
}

// Update submits the edited fields of current and its final attachment list.
// Persisted files missing from the staging list are deleted by the service.
func (s *ProjectService) Update(ctx context.Context, current models.Project, input models.ProjectInput, staging *attachments.Staging) Outcome {
	input = input.Normalized()
	if fields := s.check(input); len(fields) > 0 {
		return Invalid(fields...)
	}

	plan, outcome, ok := s.plan(staging)
	if !ok {
		return outcome
	}
	if deleted := attachments.Deletions(current.AttachedFiles, plan); len(deleted) > 0 {
		s.logger.Info().Int64("projectID", current.ID).Strs("files", deleted).Msg("attachments will be deleted")
	}

	changes, err := s.client.UpdateProject(ctx, current.ID, input, plan)
	if err != nil {
		s.logFailure(err, "update project failed")
		return Failed(err)
	}

	// Fields missing from the response keep their stored values.
	snap, err := s.store.Dispatch(ctx, store.Patch{ID: current.ID, Changes: changes})
	if err != nil {
		s.logger.Error().Err(err).Int64("projectID", current.ID).Msg("updated project not stored")
		return Failed(err)
	}
	updated, ok := snap.Find(current.ID)
	if !ok {
		updated = changes.Apply(current)
	}
	s.logger.Info().
		Int64("projectID", current.ID).
		Int("uploads", len(plan.Uploads)).
		Int("retained", len(plan.Retained)).
		Msg("project updated")
	return Succeeded(&updated)
}

func (s *ProjectService) Delete(ctx context.Context, id int64) Outcome {
	if err := s.client.DeleteProject(ctx, id); err != nil {
		s.logFailure(err, "delete project failed")
		return Failed(err)
	}
	if _, err := s.store.Dispatch(ctx, store.Remove{ID: id}); err != nil {
		return Failed(err)
	}
	s.logger.Info().Int64("projectID", id).Msg("project deleted")
	return Outcome{Kind: OK}
}

func (s *ProjectService) check(input models.ProjectInput) []errs.FieldError {
	if err := s.validate.Struct(input); err != nil {
		return errs.FromValidator(err).Fields
	}
	return nil
}

// plan reconciles the staging list. A nil staging list means no attachments.
func (s *ProjectService) plan(staging *attachments.Staging) (attachments.Plan, Outcome, bool) {
	var staged []attachments.Descriptor
	if staging != nil {
		staged = staging.Descriptors()
	}
	plan, err := attachments.Reconcile(staged)
	if err != nil {
		return attachments.Plan{}, Invalid(errs.FieldError{Field: "attached_files", Message: err.Error()}), false
	}
	return plan, Outcome{}, true
}

func (s *ProjectService) logFailure(err error, msg string) {
	if errs.IsUnauthorized(err) {
		s.logger.Warn().Err(err).Msg(msg)
		return
	}
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) {
		s.logger.Error().Err(err).Str("code", apiErr.Code).Int("status", apiErr.StatusCode).Msg(msg)
		return
	}
	s.logger.Error().Err(err).Msg(msg)
}
