package organization

import (
	"log/slog"

	"github.com/smuchara/pollstack/internal"
)

type Repository interface {
	GetByID(id int64) (*Organization, error)
	GetBySlug(slug string) (*Organization, error)
	Create(org *Organization) error
}

// Service is the tenant registry. The routing layer resolves a URL-embedded
// slug through ResolveSlug and passes the result explicitly into every core
// call; nothing below this layer reads ambient tenant state.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ResolveSlug(slug string) (*Organization, error) {
	org, err := s.repo.GetBySlug(slug)
	if err != nil {
		s.logger.Warn("organization slug not found", "slug", slug)
		return nil, internal.ErrOrganizationNotFound
	}
	return org, nil
}

func (s *Service) GetByID(id int64) (*Organization, error) {
	org, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrOrganizationNotFound
	}
	return org, nil
}
