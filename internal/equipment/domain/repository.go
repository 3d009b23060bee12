package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/units"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Equipment, error)
	// LockByID reads the row with a row-level write lock held until the
	// surrounding transaction ends.
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Equipment, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
	FindType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*TypeDetail, error)
	ListSpecs(ctx context.Context, db *gorm.DB, equipmentID snowflake.ID) (map[units.Measure]MeasureSpec, error)
}
