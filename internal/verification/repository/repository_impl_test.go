package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&domain.VerificationType{},
		&domain.VerificationItem{},
		&domain.VerificationRecord{},
		&domain.VerificationResponse{},
	))
	return db
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func boolp(v bool) *bool { return &v }

func TestTypesAndItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := Provide()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.Create(&[]domain.VerificationType{
		{ID: 10, EquipmentTypeID: 1, Name: "Diaria", FrequencyDays: 1, IsActive: true, DisplayOrder: 2, CreatedAt: now, UpdatedAt: now},
		{ID: 11, EquipmentTypeID: 1, Name: "Mensual", FrequencyDays: 30, IsActive: true, DisplayOrder: 1, CreatedAt: now, UpdatedAt: now},
		{ID: 12, EquipmentTypeID: 1, Name: "Retirada", FrequencyDays: 7, IsActive: false, CreatedAt: now, UpdatedAt: now},
	}).Error)

	types, err := r.ListActiveTypes(ctx, db, 1)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, snowflake.ID(11), types[0].ID)

	vt, err := r.FindType(ctx, db, 10)
	require.NoError(t, err)
	require.NotNil(t, vt)
	assert.Equal(t, 1, vt.FrequencyDays)

	missing, err := r.FindType(ctx, db, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.Create(&domain.VerificationItem{
		ID: 100, EquipmentTypeID: 1, VerificationTypeID: 10, Item: "Escala legible",
		ResponseType: domain.ResponseTypeText, IsRequired: true, IsActive: true,
		ExpectedTextOptions: datatypes.JSONSlice[string]{"si", "legible"},
	}).Error)

	items, err := r.ListItems(ctx, db, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"si", "legible"}, []string(items[0].ExpectedTextOptions))

	items, err = r.ListItems(ctx, db, 1, 11)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFalseFlagsAreStored(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := Provide()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.Create(&domain.VerificationType{
		ID: 20, EquipmentTypeID: 2, Name: "Semanal", FrequencyDays: 7, IsActive: false, CreatedAt: now, UpdatedAt: now,
	}).Error)
	vt, err := r.FindType(ctx, db, 20)
	require.NoError(t, err)
	require.NotNil(t, vt)
	assert.False(t, vt.IsActive)

	types, err := r.ListActiveTypes(ctx, db, 2)
	require.NoError(t, err)
	assert.Empty(t, types)

	require.NoError(t, db.Create(&[]domain.VerificationItem{
		{ID: 200, EquipmentTypeID: 2, VerificationTypeID: 20, Item: "Observaciones", ResponseType: domain.ResponseTypeText, IsRequired: false, IsActive: true, DisplayOrder: 1},
		{ID: 201, EquipmentTypeID: 2, VerificationTypeID: 20, Item: "Retirado", ResponseType: domain.ResponseTypeBoolean, IsRequired: true, IsActive: false, DisplayOrder: 2},
	}).Error)

	items, err := r.ListItems(ctx, db, 2, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, snowflake.ID(200), items[0].ID)
	assert.False(t, items[0].IsRequired)
}

func TestRecordLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := Provide()
	node := mustNode(t)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rec := &domain.VerificationRecord{
		ID:                 node.Generate(),
		EquipmentID:        1,
		VerificationTypeID: 10,
		VerifiedAt:         day.Add(9 * time.Hour),
		IsOK:               true,
		ComparisonRule:     "temperature",
		ComparisonOK:       boolp(true),
		ComparisonDetails:  datatypes.JSON(`{"message":""}`),
		CreatedAt:          day,
		UpdatedAt:          day,
	}
	responses := []domain.VerificationResponse{
		{ID: node.Generate(), VerificationID: rec.ID, VerificationItemID: 100, ResponseType: domain.ResponseTypeBoolean, ValueBool: boolp(true), IsOK: boolp(true), CreatedAt: day},
	}
	require.NoError(t, r.Insert(ctx, db, rec, responses))

	found, err := r.FindInWindow(ctx, db, 1, 10, day, day.Add(24*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, rec.ID, found[0].ID)
	assert.Equal(t, "temperature", found[0].ComparisonRule)

	found, err = r.FindInWindow(ctx, db, 1, 10, day, day.Add(24*time.Hour), rec.ID)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = r.FindInWindow(ctx, db, 1, 10, day.Add(24*time.Hour), day.Add(48*time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, found)

	rec.IsOK = false
	rec.UpdatedAt = day.Add(time.Hour)
	replaced := []domain.VerificationResponse{
		{ID: node.Generate(), VerificationID: rec.ID, VerificationItemID: 100, ResponseType: domain.ResponseTypeBoolean, ValueBool: boolp(false), IsOK: boolp(false), CreatedAt: day},
	}
	require.NoError(t, r.Update(ctx, db, rec, replaced))

	got, err := r.FindByID(ctx, db, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsOK)

	stored, err := r.ListResponses(ctx, db, []snowflake.ID{rec.ID})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, replaced[0].ID, stored[0].ID)

	require.NoError(t, r.Delete(ctx, db, rec.ID))
	got, err = r.FindByID(ctx, db, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err = r.ListResponses(ctx, db, []snowflake.ID{rec.ID})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestListByEquipmentPages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := Provide()
	node := mustNode(t)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var ids []snowflake.ID
	for i := 0; i < 5; i++ {
		rec := &domain.VerificationRecord{
			ID:                 node.Generate(),
			EquipmentID:        1,
			VerificationTypeID: 10,
			VerifiedAt:         base.AddDate(0, 0, i),
			IsOK:               true,
			ComparisonRule:     "none",
			CreatedAt:          base,
			UpdatedAt:          base,
		}
		require.NoError(t, r.Insert(ctx, db, rec, nil))
		ids = append(ids, rec.ID)
	}

	page, err := r.ListByEquipment(ctx, db, domain.ListFilter{EquipmentID: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	last := page[1]
	page, err = r.ListByEquipment(ctx, db, domain.ListFilter{
		EquipmentID: 1,
		Limit:       10,
		After:       &domain.ListCursor{ID: last.ID, VerifiedAt: last.VerifiedAt},
	})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, ids[2], page[0].ID)

	page, err = r.ListByEquipment(ctx, db, domain.ListFilter{EquipmentID: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}
