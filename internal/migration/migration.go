package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/metrolab/internal/audit/domain"
	calibrationdomain "github.com/smallbiznis/metrolab/internal/calibration/domain"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	inspectiondomain "github.com/smallbiznis/metrolab/internal/inspection/domain"
	verificationdomain "github.com/smallbiznis/metrolab/internal/verification/domain"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

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
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by the service, parents first.
func Models() []any {
	return []any{
		&equipmentdomain.EquipmentType{},
		&equipmentdomain.EquipmentTypeMeasure{},
		&equipmentdomain.Equipment{},
		&equipmentdomain.MeasureSpec{},
		&calibrationdomain.CalibrationRecord{},
		&inspectiondomain.InspectionRecord{},
		&verificationdomain.VerificationType{},
		&verificationdomain.VerificationItem{},
		&verificationdomain.VerificationRecord{},
		&verificationdomain.VerificationResponse{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate builds the schema from the gorm models. It backs the mysql and
// sqlite dialects, which the SQL migrations do not target.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
