package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// AuditLog is an append-only trail entry.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	CompanyID  *snowflake.ID     `json:"company_id,omitempty" gorm:"column:company_id;index:ix_audit_logs_company_created,priority:1"`
	ActorType  string            `json:"actor_type" gorm:"column:actor_type;type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"column:actor_id;type:text"`
	Action     string            `json:"action" gorm:"column:action;type:text;not null"`
	TargetType string            `json:"target_type" gorm:"column:target_type;type:text;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"column:target_id;type:text"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"column:ip_address;type:text"`
	UserAgent  *string           `json:"user_agent,omitempty" gorm:"column:user_agent;type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"column:created_at;not null;index:ix_audit_logs_company_created,priority:2"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	CompanyID  snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
