package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
	"gorm.io/gorm"
)

const recordColumns = `id, equipment_id, verification_type_id, reference_equipment_id, verified_at, notes, is_ok,
	comparison_rule, comparison_ok, comparison_details, created_by_user_id, created_at, updated_at`

const responseColumns = `id, verification_id, verification_item_id, response_type, value_bool, value_text, value_number, is_ok, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindType(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.VerificationType, error) {
	var item domain.VerificationType
	err := db.WithContext(ctx).Raw(
		`SELECT id, equipment_type_id, name, frequency_days, is_active, display_order, created_at, updated_at
		 FROM verification_types WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListActiveTypes(ctx context.Context, db *gorm.DB, equipmentTypeID snowflake.ID) ([]domain.VerificationType, error) {
	var items []domain.VerificationType
	err := db.WithContext(ctx).Raw(
		`SELECT id, equipment_type_id, name, frequency_days, is_active, display_order, created_at, updated_at
		 FROM verification_types
		 WHERE equipment_type_id = ? AND is_active = ?
		 ORDER BY display_order ASC, id ASC`,
		equipmentTypeID,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, equipmentTypeID, verificationTypeID snowflake.ID) ([]domain.VerificationItem, error) {
	var items []domain.VerificationItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, equipment_type_id, verification_type_id, item, response_type, is_required, expected_bool,
			expected_text_options, expected_number, expected_min, expected_max, display_order, is_active
		 FROM verification_items
		 WHERE equipment_type_id = ? AND verification_type_id = ? AND is_active = ?
		 ORDER BY display_order ASC, id ASC`,
		equipmentTypeID,
		verificationTypeID,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.VerificationRecord, error) {
	var item domain.VerificationRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM verifications WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindInWindow(ctx context.Context, db *gorm.DB, equipmentID, verificationTypeID snowflake.ID, start, end time.Time, excludeID snowflake.ID) ([]domain.VerificationRecord, error) {
	var items []domain.VerificationRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+`
		 FROM verifications
		 WHERE equipment_id = ? AND verification_type_id = ?
		   AND verified_at >= ? AND verified_at < ?
		   AND id <> ?
		 ORDER BY verified_at ASC, id ASC`,
		equipmentID,
		verificationTypeID,
		start.UTC(),
		end.UTC(),
		excludeID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByEquipment(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.VerificationRecord, error) {
	var items []domain.VerificationRecord
	stmt := db.WithContext(ctx).
		Model(&domain.VerificationRecord{}).
		Where("equipment_id = ?", filter.EquipmentID)

	if filter.VerificationTypeID != 0 {
		stmt = stmt.Where("verification_type_id = ?", filter.VerificationTypeID)
	}
	if filter.After != nil {
		stmt = stmt.Where("((verified_at < ?) OR (verified_at = ? AND id < ?))",
			filter.After.VerifiedAt.UTC(),
			filter.After.VerifiedAt.UTC(),
			filter.After.ID,
		)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	if err := stmt.Order("verified_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListResponses(ctx context.Context, db *gorm.DB, verificationIDs []snowflake.ID) ([]domain.VerificationResponse, error) {
	if len(verificationIDs) == 0 {
		return nil, nil
	}
	var items []domain.VerificationResponse
	err := db.WithContext(ctx).Raw(
		`SELECT `+responseColumns+`
		 FROM verification_responses
		 WHERE verification_id IN ?
		 ORDER BY verification_id ASC, id ASC`,
		verificationIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.VerificationRecord, responses []domain.VerificationResponse) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO verifications (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.EquipmentID,
		record.VerificationTypeID,
		record.ReferenceID,
		record.VerifiedAt,
		record.Notes,
		record.IsOK,
		record.ComparisonRule,
		record.ComparisonOK,
		record.ComparisonDetails,
		record.CreatedByUserID,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
	if err != nil {
		return err
	}
	return r.insertResponses(ctx, db, responses)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, record *domain.VerificationRecord, responses []domain.VerificationResponse) error {
	err := db.WithContext(ctx).Exec(
		`UPDATE verifications
		 SET verification_type_id = ?, reference_equipment_id = ?, verified_at = ?, notes = ?, is_ok = ?,
			comparison_rule = ?, comparison_ok = ?, comparison_details = ?, updated_at = ?
		 WHERE id = ?`,
		record.VerificationTypeID,
		record.ReferenceID,
		record.VerifiedAt,
		record.Notes,
		record.IsOK,
		record.ComparisonRule,
		record.ComparisonOK,
		record.ComparisonDetails,
		record.UpdatedAt,
		record.ID,
	).Error
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM verification_responses WHERE verification_id = ?`, record.ID).Error; err != nil {
		return err
	}
	return r.insertResponses(ctx, db, responses)
}

// Delete removes responses first; the foreign key cascade is not relied on.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM verification_responses WHERE verification_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM verifications WHERE id = ?`, id).Error
}

func (r *repo) insertResponses(ctx context.Context, db *gorm.DB, responses []domain.VerificationResponse) error {
	for _, resp := range responses {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO verification_responses (`+responseColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			resp.ID,
			resp.VerificationID,
			resp.VerificationItemID,
			resp.ResponseType,
			resp.ValueBool,
			resp.ValueText,
			resp.ValueNumber,
			resp.IsOK,
			resp.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}
