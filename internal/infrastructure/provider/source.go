package provider

import (
	"context"
	"fmt"
	"log/slog"

	"DocHarvester/internal/discovery"
	"DocHarvester/internal/domain"
	"DocHarvester/internal/ports"
)

// RegistrySource implements ports.DocumentSource by resolving the active
// provider strategy from a registry.
type RegistrySource struct {
	registry *discovery.Registry
	name     string
	options  map[string]string
	logger   *slog.Logger
}

var _ ports.DocumentSource = (*RegistrySource)(nil)

// NewRegistrySource binds a registry to the configured provider name.
func NewRegistrySource(reg *discovery.Registry, name string, options map[string]string, logger *slog.Logger) *RegistrySource {
	return &RegistrySource{registry: reg, name: name, options: options, logger: logger}
}

// Discover resolves the provider and executes its strategy for the project.
func (s *RegistrySource) Discover(ctx context.Context, project domain.ProjectRecord) ([]domain.DocumentCandidate, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("provider registry is not configured")
	}

	strategy, err := s.registry.Resolve(s.name)
	if err != nil {
		return nil, err
	}

	s.debug("discover documents", "provider", s.name, "project", project.ID)
	return strategy.Discover(ctx, discovery.Request{Project: project, Options: s.options})
}

func (s *RegistrySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
