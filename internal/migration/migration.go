package migration

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	clientdomain "github.com/smallbiznis/pressline/internal/client/domain"
	deliverydomain "github.com/smallbiznis/pressline/internal/delivery/domain"
	operatordomain "github.com/smallbiznis/pressline/internal/operator/domain"
	paymentdomain "github.com/smallbiznis/pressline/internal/payment/domain"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
	subscriptiondomain "github.com/smallbiznis/pressline/internal/subscription/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&publicationdomain.Category{},
		&publicationdomain.Publication{},
		&publicationdomain.AdditionalService{},
		&clientdomain.Client{},
		&operatordomain.Operator{},
		&operatordomain.SessionRecord{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.ServiceLink{},
		&paymentdomain.Payment{},
		&deliverydomain.Delivery{},
	}
}

// Run brings the schema up to date. Postgres uses the versioned SQL files;
// other dialects are migrated from the model definitions.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if strings.EqualFold(conn.Dialector.Name(), "postgres") {
		return RunMigrations(conn)
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
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
