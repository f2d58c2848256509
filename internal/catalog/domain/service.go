package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/errs"
	"gorm.io/gorm"
)

type Service interface {
	Lookup(ctx context.Context, projectID snowflake.ID) (ProjectQuote, error)
	Invalidate(projectID snowflake.ID)
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
}

var (
	ErrInvalidProject     = errs.New(errs.ErrValidation, "invalid_project")
	ErrProjectUnavailable = errs.New(errs.ErrValidation, "project_unavailable")
	ErrProjectNotFound    = errs.New(errs.ErrNotFound, "project_not_found")
)
