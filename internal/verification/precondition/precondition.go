// Package precondition checks calibration validity and same-day
// inspection freshness before a comparison is evaluated.
package precondition

import (
	"context"
	"fmt"
	"time"

	calibrationdomain "github.com/smallbiznis/metrolab/internal/calibration/domain"
	"github.com/smallbiznis/metrolab/internal/clock"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	inspectiondomain "github.com/smallbiznis/metrolab/internal/inspection/domain"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
	"gorm.io/gorm"
)

// Subject tells the checker which side of a comparison it is looking at.
type Subject int

const (
	SubjectEquipment Subject = iota
	SubjectReference
)

func (s Subject) field() string {
	if s == SubjectReference {
		return "reference_equipment_id"
	}
	return "equipment_id"
}

func (s Subject) label() string {
	if s == SubjectReference {
		return "reference equipment"
	}
	return "equipment"
}

type Checker struct {
	calibrations calibrationdomain.Repository
	inspections  inspectiondomain.Repository
	clock        clock.Clock
	loc          *time.Location
}

func NewChecker(calibrations calibrationdomain.Repository, inspections inspectiondomain.Repository, clk clock.Clock, loc *time.Location) *Checker {
	if loc == nil {
		loc = time.UTC
	}
	return &Checker{calibrations: calibrations, inspections: inspections, clock: clk, loc: loc}
}

// DayBounds returns the calendar day containing t in loc as a UTC
// half-open interval.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func (c *Checker) Location() *time.Location {
	return c.loc
}

// RequireValidCalibration fails when the equipment was never calibrated
// or its latest calibration is older than the type's calibration window.
// A non-positive window never expires.
func (c *Checker) RequireValidCalibration(ctx context.Context, db *gorm.DB, e *equipmentdomain.Equipment, t *equipmentdomain.EquipmentType, subject Subject) error {
	latest, err := c.calibrations.FindLatest(ctx, db, e.ID)
	if err != nil {
		return err
	}
	if latest == nil {
		return domain.PreconditionFailed(domain.ErrNoValidCalibration, subject.field(),
			fmt.Sprintf("%s %s has no calibration", subject.label(), e.ID))
	}
	if t == nil || t.CalibrationDays <= 0 {
		return nil
	}
	expiresAt := latest.CalibratedAt.AddDate(0, 0, t.CalibrationDays)
	if c.clock.Now().After(expiresAt) {
		return domain.PreconditionFailed(domain.ErrCalibrationExpired, subject.field(),
			fmt.Sprintf("%s %s calibration expired on %s", subject.label(), e.ID, expiresAt.UTC().Format(time.RFC3339)))
	}
	return nil
}

// RequireSameDayApprovedInspection fails when the inspection window
// applies and no approved inspection exists on the calendar day of at.
func (c *Checker) RequireSameDayApprovedInspection(ctx context.Context, db *gorm.DB, e *equipmentdomain.Equipment, t *equipmentdomain.EquipmentType, at time.Time, subject Subject) error {
	if e.InspectionWindowDays(t) <= 0 {
		return nil
	}
	start, end := DayBounds(at, c.loc)
	found, err := c.inspections.FindApprovedInWindow(ctx, db, e.ID, start, end)
	if err != nil {
		return err
	}
	if found != nil {
		return nil
	}
	cause := domain.ErrInspectionMissing
	if subject == SubjectReference {
		cause = domain.ErrReferenceInspectionMissing
	}
	return domain.PreconditionFailed(cause, subject.field(),
		fmt.Sprintf("%s %s has no approved inspection on %s", subject.label(), e.ID, start.In(c.loc).Format(time.DateOnly)))
}
