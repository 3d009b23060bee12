package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/metrolab/internal/actorcontext"
	auditdomain "github.com/smallbiznis/metrolab/internal/audit/domain"
	"github.com/smallbiznis/metrolab/internal/authorization"
	"github.com/smallbiznis/metrolab/internal/cache"
	calibrationdomain "github.com/smallbiznis/metrolab/internal/calibration/domain"
	calibrationrepo "github.com/smallbiznis/metrolab/internal/calibration/repository"
	"github.com/smallbiznis/metrolab/internal/clock"
	"github.com/smallbiznis/metrolab/internal/config"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	equipmentrepo "github.com/smallbiznis/metrolab/internal/equipment/repository"
	inspectiondomain "github.com/smallbiznis/metrolab/internal/inspection/domain"
	inspectionrepo "github.com/smallbiznis/metrolab/internal/inspection/repository"
	"github.com/smallbiznis/metrolab/internal/units"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
	verificationrepo "github.com/smallbiznis/metrolab/internal/verification/repository"
	"github.com/smallbiznis/metrolab/internal/verification/rules"
	"github.com/smallbiznis/metrolab/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	companyID         snowflake.ID = 5
	terminalID        snowflake.ID = 7
	workingTypeID     snowflake.ID = 100
	referenceTypeID   snowflake.ID = 101
	workingID         snowflake.ID = 1000
	referenceID       snowflake.ID = 1001
	dailyTypeID       snowflake.ID = 200
	itemCleanID       snowflake.ID = 300
	itemObservationID snowflake.ID = 301
)

type auditStub struct {
	actions  []string
	metadata []map[string]any
}

func (a *auditStub) Record(ctx context.Context, entry auditdomain.Entry) error {
	a.actions = append(a.actions, entry.Action)
	a.metadata = append(a.metadata, entry.Metadata)
	return nil
}

func (a *auditStub) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type authzStub struct {
	deny    map[string]error
	actions []string
}

func (a *authzStub) Authorize(ctx context.Context, actor actorcontext.Actor, terminalID snowflake.ID, object string, action string) error {
	a.actions = append(a.actions, action)
	if a.deny != nil {
		return a.deny[action]
	}
	return nil
}

func (a *authzStub) AuthorizeCompany(ctx context.Context, actor actorcontext.Actor, object string, action string) error {
	return a.Authorize(ctx, actor, 0, object, action)
}

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	audit *auditStub
	authz *authzStub
	svc   domain.Service
	now   time.Time
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&equipmentdomain.EquipmentType{},
		&equipmentdomain.EquipmentTypeMeasure{},
		&equipmentdomain.Equipment{},
		&equipmentdomain.MeasureSpec{},
		&calibrationdomain.CalibrationRecord{},
		&inspectiondomain.InspectionRecord{},
		&domain.VerificationType{},
		&domain.VerificationItem{},
		&domain.VerificationRecord{},
		&domain.VerificationResponse{},
	))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	seedThermometers(t, db, now)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{db: db, clock: clk, audit: &auditStub{}, authz: &authzStub{}, now: now}
	f.svc = New(Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           clk,
		Config:          config.Config{TimeZone: "UTC", Authz: config.AuthzConfig{Enabled: true}},
		Repo:            verificationrepo.Provide(),
		EquipmentRepo:   equipmentrepo.Provide(),
		CalibrationRepo: calibrationrepo.Provide(),
		InspectionRepo:  inspectionrepo.Provide(),
		Rules:           config.NewStaticRulesConfigHolder(rules.DefaultThresholds()),
		TypeCache:       cache.NewEquipmentTypeCache(clk),
		Authz:           f.authz,
		AuditSvc:        f.audit,
	})
	return f
}

func seedThermometers(t *testing.T, db *gorm.DB, now time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&[]equipmentdomain.EquipmentType{
		{ID: workingTypeID, Name: "Termómetro electrónico", Role: equipmentdomain.RoleWorking, CalibrationDays: 365, InspectionDays: 1, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: referenceTypeID, Name: "Termómetro electrónico", Role: equipmentdomain.RoleReference, CalibrationDays: 365, InspectionDays: 1, IsActive: true, CreatedAt: now, UpdatedAt: now},
	}).Error)
	require.NoError(t, db.Create(&[]equipmentdomain.EquipmentTypeMeasure{
		{ID: 110, EquipmentTypeID: workingTypeID, Measure: units.MeasureTemperature},
		{ID: 111, EquipmentTypeID: referenceTypeID, Measure: units.MeasureTemperature},
	}).Error)
	require.NoError(t, db.Create(&[]equipmentdomain.Equipment{
		{ID: workingID, CompanyID: companyID, TerminalID: terminalID, EquipmentTypeID: workingTypeID, Serial: "TL1-001", Status: equipmentdomain.StatusStored, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: referenceID, CompanyID: companyID, TerminalID: terminalID, EquipmentTypeID: referenceTypeID, Serial: "REF-001", Status: equipmentdomain.StatusStored, IsActive: true, CreatedAt: now, UpdatedAt: now},
	}).Error)

	calibratedAt := now.AddDate(0, -2, 0)
	require.NoError(t, db.Create(&[]calibrationdomain.CalibrationRecord{
		{ID: 120, EquipmentID: workingID, CalibratedAt: calibratedAt, CreatedAt: calibratedAt},
		{ID: 121, EquipmentID: referenceID, CalibratedAt: calibratedAt, CreatedAt: calibratedAt},
	}).Error)
	addInspections(t, db, now)

	require.NoError(t, db.Create(&domain.VerificationType{
		ID: dailyTypeID, EquipmentTypeID: workingTypeID, Name: "Daily", FrequencyDays: 1, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}).Error)
	expected := true
	require.NoError(t, db.Create(&[]domain.VerificationItem{
		{ID: itemCleanID, EquipmentTypeID: workingTypeID, VerificationTypeID: dailyTypeID, Item: "Clean and undamaged", ResponseType: domain.ResponseTypeBoolean, IsRequired: true, ExpectedBool: &expected, DisplayOrder: 1, IsActive: true},
		{ID: itemObservationID, EquipmentTypeID: workingTypeID, VerificationTypeID: dailyTypeID, Item: "Observations", ResponseType: domain.ResponseTypeText, IsRequired: false, DisplayOrder: 2, IsActive: true},
	}).Error)
}

var inspectionSeq int64 = 5000

// addInspections approves both thermometers on the calendar day of at.
func addInspections(t *testing.T, db *gorm.DB, at time.Time) {
	t.Helper()
	morning := time.Date(at.Year(), at.Month(), at.Day(), 8, 0, 0, 0, time.UTC)
	for _, id := range []snowflake.ID{workingID, referenceID} {
		inspectionSeq++
		require.NoError(t, db.Create(&inspectiondomain.InspectionRecord{
			ID: snowflake.ID(inspectionSeq), EquipmentID: id, InspectedAt: morning, IsOK: true, CreatedAt: morning,
		}).Error)
	}
}

func f64(v float64) *float64 { return &v }

func boolp(v bool) *bool { return &v }

func strp(v string) *string { return &v }

func temperaturePayload(underTest, reference float64) domain.Payload {
	return domain.Payload{
		ReferenceEquipmentID: referenceID.String(),
		Readings: domain.Readings{
			ReadingUnderTest:     f64(underTest),
			ReadingUnderTestUnit: "C",
			ReferenceReading:     f64(reference),
			ReferenceReadingUnit: "°C",
		},
		Responses: []domain.ResponseInput{
			{VerificationItemID: itemCleanID.String(), ResponseType: domain.ResponseTypeBoolean, ValueBool: boolp(true)},
		},
	}
}

func technicianCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		Type:        actorcontext.ActorTypeUser,
		UserID:      "u-1",
		Role:        authorization.RoleTechnician,
		CompanyID:   companyID,
		TerminalIDs: []snowflake.ID{terminalID},
	})
}

func equipmentStatus(t *testing.T, db *gorm.DB, id snowflake.ID) equipmentdomain.Status {
	t.Helper()
	var e equipmentdomain.Equipment
	require.NoError(t, db.First(&e, "id = ?", id).Error)
	return e.Status
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

func requireCode(t *testing.T, err error, kind error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	e, ok := domain.AsError(err)
	require.True(t, ok, "expected *domain.Error, got %T", err)
	assert.Equal(t, code, e.Code)
}

func TestCreatePassingComparisonMarksEquipmentInUse(t *testing.T) {
	f := newFixture(t)
	payload := temperaturePayload(20.0, 20.2)
	payload.Notes = strp("  bench A  ")

	resp, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	require.NoError(t, err)

	assert.True(t, resp.IsOK)
	assert.Equal(t, string(rules.KindTemperature), resp.ComparisonRule)
	require.NotNil(t, resp.ComparisonOK)
	assert.True(t, *resp.ComparisonOK)
	assert.Equal(t, dailyTypeID.String(), resp.VerificationTypeID)
	require.NotNil(t, resp.ReferenceEquipmentID)
	assert.Equal(t, referenceID.String(), *resp.ReferenceEquipmentID)
	assert.Equal(t, f.now, resp.VerifiedAt)
	require.NotNil(t, resp.CreatedByUserID)
	assert.Equal(t, "u-1", *resp.CreatedByUserID)
	require.NotNil(t, resp.Notes)
	assert.Contains(t, *resp.Notes, "bench A\nTemperature comparison")
	assert.NotEmpty(t, resp.ComparisonNote)
	require.Len(t, resp.Responses, 1)
	require.NotNil(t, resp.Responses[0].IsOK)
	assert.True(t, *resp.Responses[0].IsOK)

	assert.Equal(t, equipmentdomain.StatusInUse, equipmentStatus(t, f.db, workingID))
	assert.Equal(t, []string{"verification.created"}, f.audit.actions)
	assert.Equal(t, "temperature", f.audit.metadata[0]["comparison_rule"])
	assert.Equal(t, []string{authorization.ActionVerificationCreate}, f.authz.actions)
}

func TestCreateFailingComparisonMarksNeedsReview(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.35)})
	require.NoError(t, err)

	assert.False(t, resp.IsOK)
	require.NotNil(t, resp.ComparisonOK)
	assert.False(t, *resp.ComparisonOK)
	assert.Contains(t, resp.ComparisonMessage, "exceeds tolerance")
	assert.Equal(t, equipmentdomain.StatusNeedsReview, equipmentStatus(t, f.db, workingID))
}

func TestCreateFailedChecklistOverridesPassingComparison(t *testing.T) {
	f := newFixture(t)
	payload := temperaturePayload(20.0, 20.1)
	payload.Responses[0].ValueBool = boolp(false)

	resp, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	require.NoError(t, err)

	assert.False(t, resp.IsOK)
	require.NotNil(t, resp.ComparisonOK)
	assert.True(t, *resp.ComparisonOK)
	assert.Equal(t, equipmentdomain.StatusNeedsReview, equipmentStatus(t, f.db, workingID))
}

func TestCreateSameDayConflictAndReplace(t *testing.T) {
	f := newFixture(t)
	ctx := technicianCtx()

	first, err := f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	requireCode(t, err, domain.ErrConflict, "verification_exists")
	assert.Equal(t, int64(1), countRows(t, f.db, "verifications"))

	second, err := f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), ReplaceExisting: true, Payload: temperaturePayload(20.0, 20.1)})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(1), countRows(t, f.db, "verifications"))
	assert.Equal(t, int64(1), countRows(t, f.db, "verification_responses"))

	_, err = f.svc.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, f.authz.actions, authorization.ActionVerificationReplace)
	assert.Equal(t, []any{first.ID}, f.audit.metadata[len(f.audit.metadata)-1]["replaced_verification_ids"])
}

func TestCreateReplaceNeedsPermission(t *testing.T) {
	f := newFixture(t)
	ctx := technicianCtx()
	_, err := f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	require.NoError(t, err)

	f.authz.deny = map[string]error{authorization.ActionVerificationReplace: authorization.ErrForbidden}
	_, err = f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), ReplaceExisting: true, Payload: temperaturePayload(20.0, 20.1)})
	requireCode(t, err, domain.ErrForbidden, "forbidden")
	assert.Equal(t, int64(1), countRows(t, f.db, "verifications"))
}

func TestCreateNextDayIsNotAConflict(t *testing.T) {
	f := newFixture(t)
	ctx := technicianCtx()
	_, err := f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	addInspections(t, f.db, f.clock.Now())
	_, err = f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), countRows(t, f.db, "verifications"))
}

func TestCreateMissingRequiredItemWritesNothing(t *testing.T) {
	f := newFixture(t)
	payload := temperaturePayload(20.0, 20.1)
	payload.Responses = []domain.ResponseInput{
		{VerificationItemID: itemObservationID.String(), ResponseType: domain.ResponseTypeText, ValueText: strp("fine")},
	}

	_, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	requireCode(t, err, domain.ErrInvalidRequest, "missing_required_item")
	assert.Equal(t, int64(0), countRows(t, f.db, "verifications"))
	assert.Equal(t, equipmentdomain.StatusStored, equipmentStatus(t, f.db, workingID))
	assert.Empty(t, f.audit.actions)
}

func TestCreateRejectsItemOfAnotherType(t *testing.T) {
	f := newFixture(t)
	payload := temperaturePayload(20.0, 20.1)
	payload.Responses = append(payload.Responses, domain.ResponseInput{
		VerificationItemID: "999", ResponseType: domain.ResponseTypeBoolean, ValueBool: boolp(true),
	})

	_, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	requireCode(t, err, domain.ErrNotFound, "verification_item_not_found")
}

func TestCreateRequiresReference(t *testing.T) {
	f := newFixture(t)
	payload := temperaturePayload(20.0, 20.1)
	payload.ReferenceEquipmentID = ""

	_, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	requireCode(t, err, domain.ErrInvalidRequest, "reference_required")

	payload.ReferenceEquipmentID = workingID.String()
	_, err = f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	requireCode(t, err, domain.ErrInvalidRequest, "self_reference")

	payload.ReferenceEquipmentID = "424242"
	_, err = f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	requireCode(t, err, domain.ErrNotFound, "reference_equipment_not_found")
}

func TestCreateMissingReferenceInspection(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Where("equipment_id = ?", referenceID).Delete(&inspectiondomain.InspectionRecord{}).Error)

	_, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	requireCode(t, err, domain.ErrPreconditionFailed, "reference_inspection_missing")
	assert.Equal(t, int64(0), countRows(t, f.db, "verifications"))
}

func TestCreateExpiredCalibration(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(365 * 24 * time.Hour)
	addInspections(t, f.db, f.clock.Now())

	_, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	requireCode(t, err, domain.ErrPreconditionFailed, "calibration_expired")
}

func TestCreateAmbiguousVerificationType(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&domain.VerificationType{
		ID: 201, EquipmentTypeID: workingTypeID, Name: "Monthly", FrequencyDays: rules.MonthlyFrequencyDays, IsActive: true, CreatedAt: f.now, UpdatedAt: f.now,
	}).Error)

	_, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	requireCode(t, err, domain.ErrInvalidRequest, "ambiguous_verification_type")

	payload := temperaturePayload(20.0, 20.1)
	payload.VerificationTypeID = dailyTypeID.String()
	_, err = f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	require.NoError(t, err)
}

func TestCreateIgnoresInactiveVerificationType(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&domain.VerificationType{
		ID: 202, EquipmentTypeID: workingTypeID, Name: "Retired weekly", FrequencyDays: 7, IsActive: false, CreatedAt: f.now, UpdatedAt: f.now,
	}).Error)

	resp, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	require.NoError(t, err)
	assert.Equal(t, dailyTypeID.String(), resp.VerificationTypeID)
	assert.Equal(t, int64(1), countRows(t, f.db, "verifications"))
}

func TestCreateRejectsInactiveReference(t *testing.T) {
	f := newFixture(t)
	const retiredID snowflake.ID = 1002
	require.NoError(t, f.db.Create(&equipmentdomain.Equipment{
		ID: retiredID, CompanyID: companyID, TerminalID: terminalID, EquipmentTypeID: referenceTypeID, Serial: "REF-002",
		Status: equipmentdomain.StatusStored, IsActive: false, CreatedAt: f.now, UpdatedAt: f.now,
	}).Error)

	payload := temperaturePayload(20.0, 20.1)
	payload.ReferenceEquipmentID = retiredID.String()
	_, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	requireCode(t, err, domain.ErrInvalidRequest, "invalid_reference")
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
	assert.Equal(t, int64(0), countRows(t, f.db, "verifications"))
}

func TestCreateUnknownEquipmentAndBadIDs(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: "999999", Payload: temperaturePayload(20.0, 20.1)})
	requireCode(t, err, domain.ErrNotFound, "equipment_not_found")

	_, err = f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: "abc", Payload: temperaturePayload(20.0, 20.1)})
	requireCode(t, err, domain.ErrInvalidRequest, "invalid_id")
}

func TestCreateForbiddenTerminal(t *testing.T) {
	f := newFixture(t)
	f.authz.deny = map[string]error{
		authorization.ActionVerificationCreate: fmt.Errorf("%w: %w", authorization.ErrForbidden, authorization.ErrTerminalDenied),
	}

	_, err := f.svc.Create(technicianCtx(), domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	requireCode(t, err, domain.ErrForbidden, "terminal_access_denied")
	assert.True(t, errors.Is(err, authorization.ErrTerminalDenied))
	assert.Equal(t, int64(0), countRows(t, f.db, "verifications"))
}

func TestUpdateReevaluatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := technicianCtx()
	payload := temperaturePayload(20.0, 20.1)
	payload.Notes = strp("bench A")
	created, err := f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	updated, err := f.svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Payload: temperaturePayload(20.0, 20.4)})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.False(t, updated.IsOK)
	assert.Equal(t, created.VerifiedAt, updated.VerifiedAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	require.NotNil(t, updated.Notes)
	assert.Contains(t, *updated.Notes, "bench A\n")
	assert.NotContains(t, *updated.Notes, created.ComparisonNote)
	assert.Equal(t, equipmentdomain.StatusNeedsReview, equipmentStatus(t, f.db, workingID))
	assert.Equal(t, int64(1), countRows(t, f.db, "verifications"))
	assert.Equal(t, int64(1), countRows(t, f.db, "verification_responses"))
	assert.Contains(t, f.authz.actions, authorization.ActionVerificationUpdate)
	assert.Equal(t, "verification.updated", f.audit.actions[len(f.audit.actions)-1])
}

func TestUpdateConflictsWithAnotherSameDayRecord(t *testing.T) {
	f := newFixture(t)
	ctx := technicianCtx()
	today, err := f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	require.NoError(t, err)

	yesterday := f.now.AddDate(0, 0, -1)
	addInspections(t, f.db, yesterday)
	payload := temperaturePayload(20.0, 20.1)
	payload.VerifiedAt = &yesterday
	older, err := f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
	require.NoError(t, err)

	moved := temperaturePayload(20.0, 20.1)
	moved.VerifiedAt = &today.VerifiedAt
	_, err = f.svc.Update(ctx, domain.UpdateRequest{ID: older.ID, Payload: moved})
	requireCode(t, err, domain.ErrConflict, "verification_exists")
}

func TestUpdateUnknownRecord(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(technicianCtx(), domain.UpdateRequest{ID: "123", Payload: temperaturePayload(20.0, 20.1)})
	requireCode(t, err, domain.ErrNotFound, "verification_not_found")
}

func TestListPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := technicianCtx()
	var ids []string
	for i := 2; i >= 0; i-- {
		at := f.now.AddDate(0, 0, -i)
		if i > 0 {
			addInspections(t, f.db, at)
		}
		payload := temperaturePayload(20.0, 20.1)
		payload.VerifiedAt = &at
		resp, err := f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: payload})
		require.NoError(t, err)
		ids = append(ids, resp.ID)
	}

	page, err := f.svc.List(ctx, domain.ListRequest{EquipmentID: workingID.String(), Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.PageInfo.HasMore)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[1], page.Items[1].ID)
	assert.Len(t, page.Items[0].Responses, 1)

	next, err := f.svc.List(ctx, domain.ListRequest{EquipmentID: workingID.String(), Pagination: pagination.Pagination{PageSize: 2, PageToken: page.PageInfo.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.False(t, next.PageInfo.HasMore)
	assert.Equal(t, ids[0], next.Items[0].ID)

	_, err = f.svc.List(ctx, domain.ListRequest{EquipmentID: workingID.String(), Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	ctx := technicianCtx()
	created, err := f.svc.Create(ctx, domain.CreateRequest{EquipmentID: workingID.String(), Payload: temperaturePayload(20.0, 20.1)})
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.ComparisonNote, got.ComparisonNote)
	assert.Len(t, got.Responses, 1)
	assert.Contains(t, f.authz.actions, authorization.ActionVerificationView)

	_, err = f.svc.GetByID(ctx, "77")
	requireCode(t, err, domain.ErrNotFound, "verification_not_found")
}

func TestVerdictIsPureFunctionOfInputs(t *testing.T) {
	outcomes := []rules.Outcome{
		{Kind: rules.KindNone, Passed: true},
		{Kind: rules.KindTape, Passed: true},
		{Kind: rules.KindTape, Passed: false},
	}
	for _, checklistOK := range []bool{true, false} {
		for _, outcome := range outcomes {
			first := deriveVerdict(checklistOK, outcome)
			for i := 0; i < 3; i++ {
				assert.Equal(t, first, deriveVerdict(checklistOK, outcome))
				assert.Equal(t, statusFor(first), statusFor(deriveVerdict(checklistOK, outcome)))
			}
			assert.Equal(t, checklistOK && outcome.Passed, first)
		}
	}
}

func TestComposeAndRecoverNotes(t *testing.T) {
	assert.Nil(t, composeNotes(nil, ""))
	assert.Nil(t, composeNotes(strp("  "), " "))
	assert.Equal(t, "caller", *composeNotes(strp(" caller "), ""))
	assert.Equal(t, "caller\naudit", *composeNotes(strp("caller"), "audit"))
	assert.Equal(t, "audit", *composeNotes(nil, "audit"))

	record, err := buildRecord(recordInput{
		id:      1,
		notes:   strp("caller"),
		outcome: rules.Outcome{Kind: rules.KindTape, Passed: true, Note: "audit line"},
	})
	require.NoError(t, err)
	assert.Equal(t, "caller", *callerNotes(nil, &record))
	assert.Equal(t, "new", *callerNotes(strp("new"), &record))
	assert.Nil(t, callerNotes(nil, nil))
}
