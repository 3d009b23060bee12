package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/metrolab/internal/equipment/domain"
	"github.com/smallbiznis/metrolab/internal/units"
	verificationdomain "github.com/smallbiznis/metrolab/internal/verification/domain"
	"github.com/smallbiznis/metrolab/internal/verification/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
		&domain.EquipmentType{},
		&domain.EquipmentTypeMeasure{},
		&domain.Equipment{},
		&domain.MeasureSpec{},
	))
	return db
}

func seedThermometers(t *testing.T, db *gorm.DB, now time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&[]domain.EquipmentType{
		{ID: 10, Name: "Termómetro electrónico", Role: domain.RoleWorking, CalibrationDays: 365, InspectionDays: 1, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: 11, Name: "Termómetro electrónico", Role: domain.RoleReference, CalibrationDays: 365, InspectionDays: 1, IsActive: false, CreatedAt: now, UpdatedAt: now},
	}).Error)
	require.NoError(t, db.Create(&[]domain.EquipmentTypeMeasure{
		{ID: 20, EquipmentTypeID: 10, Measure: units.MeasureTemperature},
		{ID: 21, EquipmentTypeID: 11, Measure: units.MeasureTemperature},
	}).Error)
	require.NoError(t, db.Create(&[]domain.Equipment{
		{ID: 100, CompanyID: 1, TerminalID: 2, EquipmentTypeID: 10, Serial: "TL1-001", Status: domain.StatusStored, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: 101, CompanyID: 1, TerminalID: 2, EquipmentTypeID: 11, Serial: "REF-001", Status: domain.StatusStored, IsActive: false, CreatedAt: now, UpdatedAt: now},
	}).Error)
}

func TestFindByIDKeepsInactiveFlag(t *testing.T) {
	db := setupTestDB(t)
	repo := Provide()
	ctx := context.Background()
	seedThermometers(t, db, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	working, err := repo.FindByID(ctx, db, 100)
	require.NoError(t, err)
	require.NotNil(t, working)
	assert.True(t, working.IsActive)

	ref, err := repo.FindByID(ctx, db, 101)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.False(t, ref.IsActive)

	locked, err := repo.LockByID(ctx, db, 101)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.False(t, locked.IsActive)

	refType, err := repo.FindType(ctx, db, 11)
	require.NoError(t, err)
	require.NotNil(t, refType)
	assert.False(t, refType.Type.IsActive)
	assert.True(t, refType.Supports(units.MeasureTemperature))

	missing, err := repo.FindByID(ctx, db, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInactiveStoredReferenceIsRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := Provide()
	ctx := context.Background()
	seedThermometers(t, db, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	working, err := repo.FindByID(ctx, db, 100)
	require.NoError(t, err)
	workingType, err := repo.FindType(ctx, db, 10)
	require.NoError(t, err)
	ref, err := repo.FindByID(ctx, db, 101)
	require.NoError(t, err)
	refType, err := repo.FindType(ctx, db, 11)
	require.NoError(t, err)

	err = rules.CheckReference(rules.KindTemperature, working, workingType, ref, refType)
	require.Error(t, err)
	assert.ErrorIs(t, err, verificationdomain.ErrInvalidReference)

	require.NoError(t, db.Model(&domain.Equipment{}).Where("id = ?", 101).Update("is_active", true).Error)
	ref, err = repo.FindByID(ctx, db, 101)
	require.NoError(t, err)
	assert.NoError(t, rules.CheckReference(rules.KindTemperature, working, workingType, ref, refType))
}
