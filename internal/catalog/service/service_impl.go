package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/cache"
	"github.com/smallbiznis/codemart/internal/catalog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultQuoteTTL = time.Minute

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	quotes *cache.TTLCache[domain.ProjectQuote]
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("catalog.service"),
		repo:   p.Repo,
		quotes: cache.NewTTLCache[domain.ProjectQuote](defaultQuoteTTL, 5*time.Minute),
	}
}

func (s *Service) Lookup(ctx context.Context, projectID snowflake.ID) (domain.ProjectQuote, error) {
	if projectID == 0 {
		return domain.ProjectQuote{}, domain.ErrInvalidProject
	}

	key := projectID.String()
	if quote, ok := s.quotes.Get(key); ok {
		return quote, nil
	}

	project, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return domain.ProjectQuote{}, err
	}
	if project == nil {
		return domain.ProjectQuote{}, domain.ErrProjectNotFound
	}
	if project.Status != domain.ProjectStatusActive || !project.Price.IsPositive() || project.SellerID == 0 {
		s.log.Debug("project not purchasable",
			zap.String("project_id", key),
			zap.String("status", string(project.Status)),
		)
		return domain.ProjectQuote{}, domain.ErrProjectUnavailable
	}

	quote := domain.ProjectQuote{
		ProjectID: project.ID,
		SellerID:  project.SellerID,
		Title:     project.Title,
		Price:     project.Price,
	}
	s.quotes.Set(key, quote)
	return quote, nil
}

func (s *Service) Invalidate(projectID snowflake.ID) {
	s.quotes.Delete(projectID.String())
}
