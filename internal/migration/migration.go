package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/codemart/internal/audit/domain"
	"github.com/smallbiznis/codemart/internal/authorization"
	catalogdomain "github.com/smallbiznis/codemart/internal/catalog/domain"
	eventsdomain "github.com/smallbiznis/codemart/internal/events/domain"
	ledgerdomain "github.com/smallbiznis/codemart/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/codemart/internal/order/domain"
	statsdomain "github.com/smallbiznis/codemart/internal/stats/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations to a postgres database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by this service in creation order.
func Models() []any {
	return []any{
		&catalogdomain.Project{},
		&orderdomain.Order{},
		&ledgerdomain.PointAccount{},
		&ledgerdomain.PointTransaction{},
		&eventsdomain.OrderEvent{},
		&auditdomain.AuditLog{},
		&statsdomain.DownloadRecord{},
		&authorization.Role{},
		&authorization.Permission{},
		&authorization.UserRole{},
		&authorization.UserPermission{},
	}
}

// AutoMigrate creates the schema from the models for dialects the SQL files do not target.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
