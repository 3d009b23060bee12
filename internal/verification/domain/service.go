package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	GetByID(ctx context.Context, id string) (*Response, error)
}

type Repository interface {
	FindType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*VerificationType, error)
	ListActiveTypes(ctx context.Context, db *gorm.DB, equipmentTypeID snowflake.ID) ([]VerificationType, error)
	ListItems(ctx context.Context, db *gorm.DB, equipmentTypeID, verificationTypeID snowflake.ID) ([]VerificationItem, error)

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*VerificationRecord, error)
	// FindInWindow returns records of the pair with verified_at in
	// [start, end), skipping excludeID when it is non-zero.
	FindInWindow(ctx context.Context, db *gorm.DB, equipmentID, verificationTypeID snowflake.ID, start, end time.Time, excludeID snowflake.ID) ([]VerificationRecord, error)
	// ListByEquipment returns records newest first, starting after filter.After.
	ListByEquipment(ctx context.Context, db *gorm.DB, filter ListFilter) ([]VerificationRecord, error)
	ListResponses(ctx context.Context, db *gorm.DB, verificationIDs []snowflake.ID) ([]VerificationResponse, error)

	Insert(ctx context.Context, db *gorm.DB, record *VerificationRecord, responses []VerificationResponse) error
	// Update rewrites the record and replaces its responses.
	Update(ctx context.Context, db *gorm.DB, record *VerificationRecord, responses []VerificationResponse) error
	// Delete removes the record together with its responses.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}

// ListFilter is the storage-level view of a list request.
type ListFilter struct {
	EquipmentID        snowflake.ID
	VerificationTypeID snowflake.ID
	After              *ListCursor
	Limit              int
}

// ListCursor identifies the last record of the previous page.
type ListCursor struct {
	ID         snowflake.ID
	VerifiedAt time.Time
}

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
