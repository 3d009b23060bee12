package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/metrolab/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert appends one entry. Audit rows are never updated.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// List returns up to Limit+1 rows, newest first, so the caller can tell
// whether another page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	q := db.WithContext(ctx).
		Where("company_id = ?", filter.CompanyID).
		Scopes(
			equals("action", filter.Action),
			equals("target_type", filter.TargetType),
			equals("target_id", filter.TargetID),
			equals("actor_type", filter.ActorType),
		)

	if filter.StartAt != nil {
		q = q.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		q = q.Where("created_at <= ?", filter.EndAt.UTC())
	}
	if c := filter.Cursor; c != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit + 1)
	}

	var rows []*domain.AuditLog
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// equals filters column by value, skipping blank values.
func equals(column, value string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if value = strings.TrimSpace(value); value == "" {
			return q
		}
		return q.Where(column+" = ?", value)
	}
}
