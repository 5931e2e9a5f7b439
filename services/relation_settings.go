package services

import (
	"context"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rpupo63/portfolio-dashboard-core/api"
	"github.com/rpupo63/portfolio-dashboard-core/models"
	"github.com/rpupo63/portfolio-dashboard-core/view"
)

// SettingsAPI is the part of the remote client the relation settings dialog uses.
type SettingsAPI interface {
	GetRelationSettings(ctx context.Context) (models.RelationSettings, error)
	UpdateRelationSettings(ctx context.Context, settings models.RelationSettings) (models.RelationSettings, error)
	ListTechnologies(ctx context.Context) ([]string, error)
	ListProjects(ctx context.Context, opts api.ListOptions) ([]models.Project, error)
}

// SettingsForm is everything the relation settings dialog shows: the current
// exclusions and the values that can be excluded.
type SettingsForm struct {
	Settings              models.RelationSettings
	AvailableTags         []string
	AvailableTechnologies []string
}

type RelationSettingsService struct {
	client SettingsAPI
	logger zerolog.Logger
}

func NewRelationSettingsService(client SettingsAPI) *RelationSettingsService {
	return &RelationSettingsService{
		client: client,
		logger: log.With().Str("serviceName", "relationSettingsService").Logger(),
	}
}

// Open loads the settings, the technologies and the project tags
// concurrently. The first failure cancels the other requests, so a missing
// credential fails the whole dialog load without waiting on the reads.
func (s *RelationSettingsService) Open(ctx context.Context) (SettingsForm, error) {
	var (
		settings models.RelationSettings
		techs    []string
		projects []models.Project
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = s.client.GetRelationSettings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		techs, err = s.client.ListTechnologies(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = s.client.ListProjects(gctx, api.ListOptions{})
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to load relation settings")
		return SettingsForm{}, err
	}

	techs = append([]string{}, techs...)
	slices.Sort(techs)
	techs = slices.Compact(techs)

	current := settings.Request()
	current.UpdatedAt = settings.UpdatedAt

	return SettingsForm{
		Settings:              current,
		AvailableTags:         view.CollectFacets(projects).Sorted().Tags,
		AvailableTechnologies: techs,
	}, nil
}

// Save stores the exclusions and returns what the service persisted.
func (s *RelationSettingsService) Save(ctx context.Context, settings models.RelationSettings) (models.RelationSettings, error) {
	saved, err := s.client.UpdateRelationSettings(ctx, settings.Request())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to save relation settings")
		return models.RelationSettings{}, err
	}
	s.logger.Info().
		Int("excludedTags", len(saved.ExcludedTags)).
		Int("excludedTechnologies", len(saved.ExcludedTechnologies)).
		Str("message", saved.Message).
		Msg("relation settings saved")
	return saved, nil
}
