package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/actorcontext"
	"github.com/smallbiznis/metrolab/internal/authorization"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	obsmetrics "github.com/smallbiznis/metrolab/internal/observability/metrics"
	"github.com/smallbiznis/metrolab/internal/verification/checklist"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
	"github.com/smallbiznis/metrolab/internal/verification/precondition"
	"github.com/smallbiznis/metrolab/internal/verification/rules"
	"gorm.io/gorm"
)

// evaluation is what one committed submission produced.
type evaluation struct {
	equipment      *equipmentdomain.Equipment
	record         domain.VerificationRecord
	responses      []domain.VerificationResponse
	outcome        rules.Outcome
	previousStatus equipmentdomain.Status
	status         equipmentdomain.Status
	replaced       []snowflake.ID
}

// evaluateAndPersist runs every stage inside tx. Nothing is written until
// the comparison has been evaluated, so any failure leaves storage as it
// was.
func (s *Service) evaluateAndPersist(ctx context.Context, tx *gorm.DB, sub submission, actor actorcontext.Actor) (*evaluation, error) {
	lockStarted := time.Now()
	equipment, err := s.equipmentRepo.LockByID(ctx, tx, sub.equipmentID)
	s.promMetrics.ObserveLockWait(time.Since(lockStarted))
	if err != nil {
		return nil, err
	}
	if equipment == nil {
		return nil, domain.NotFound(domain.ErrEquipmentNotFound, "equipment_id", fmt.Sprintf("equipment %s not found", sub.equipmentID))
	}

	var existing *domain.VerificationRecord
	action := authorization.ActionVerificationCreate
	if sub.operation == obsmetrics.OperationUpdate {
		action = authorization.ActionVerificationUpdate
		existing, err = s.repo.FindByID(ctx, tx, sub.recordID)
		if err != nil {
			return nil, err
		}
		if existing == nil || existing.EquipmentID != equipment.ID {
			return nil, domain.NotFound(domain.ErrVerificationNotFound, "id", fmt.Sprintf("verification %s not found", sub.recordID))
		}
	}
	if err := s.authorize(ctx, equipment, action); err != nil {
		return nil, err
	}

	workingType, err := s.findEquipmentType(ctx, tx, equipment.EquipmentTypeID)
	if err != nil {
		return nil, err
	}
	if workingType == nil {
		return nil, domain.NotFound(domain.ErrEquipmentTypeNotFound, "equipment_id", fmt.Sprintf("equipment type %s not found", equipment.EquipmentTypeID))
	}

	// Resolving
	vtype, err := s.resolveType(ctx, tx, workingType, sub.payload.VerificationTypeID, existing)
	if err != nil {
		return nil, err
	}

	// Validating
	items, err := s.repo.ListItems(ctx, tx, workingType.Type.ID, vtype.ID)
	if err != nil {
		return nil, err
	}
	answers, err := checklist.Validate(items, sub.payload.Responses)
	if err != nil {
		return nil, err
	}
	checklistOK := checklist.GradeAll(answers)

	verifiedAt := s.verifiedAt(sub.payload, existing)
	kind := rules.Select(workingType.Type.Name, workingType.Type.Role, workingType.MeasureSet(), vtype.FrequencyDays)

	ref, refType, err := s.resolveReference(ctx, tx, kind, equipment, workingType, sub.payload.ReferenceEquipmentID)
	if err != nil {
		return nil, err
	}

	// Preconditions
	if err := s.checker.RequireValidCalibration(ctx, tx, equipment, &workingType.Type, precondition.SubjectEquipment); err != nil {
		return nil, err
	}
	if err := s.checker.RequireSameDayApprovedInspection(ctx, tx, equipment, &workingType.Type, verifiedAt, precondition.SubjectEquipment); err != nil {
		return nil, err
	}
	if kind.RequiresReference() {
		if err := s.checker.RequireValidCalibration(ctx, tx, ref, &refType.Type, precondition.SubjectReference); err != nil {
			return nil, err
		}
		if err := s.checker.RequireSameDayApprovedInspection(ctx, tx, ref, &refType.Type, verifiedAt, precondition.SubjectReference); err != nil {
			return nil, err
		}
	}

	// Evaluating
	specs, err := s.equipmentRepo.ListSpecs(ctx, tx, equipment.ID)
	if err != nil {
		return nil, err
	}
	outcome, err := rules.Evaluate(rules.Input{
		Kind:          kind,
		FrequencyDays: vtype.FrequencyDays,
		Readings:      sub.payload.Readings,
		Specs:         specs,
		WorkingType:   workingType,
		Reference:     ref,
		Thresholds:    s.rules.Thresholds(),
	})
	if err != nil {
		return nil, err
	}

	// Persisting
	var excludeID snowflake.ID
	if existing != nil {
		excludeID = existing.ID
	}
	replaced, err := s.resolveSameDayConflict(ctx, tx, sub, equipment, vtype, verifiedAt, excludeID)
	if err != nil {
		return nil, err
	}

	isOK := deriveVerdict(checklistOK, outcome)
	status := statusFor(isOK)
	if err := s.equipmentRepo.UpdateStatus(ctx, tx, equipment.ID, status); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	record, err := buildRecord(recordInput{
		id:          s.newRecordID(existing),
		equipmentID: equipment.ID,
		vtypeID:     vtype.ID,
		reference:   ref,
		verifiedAt:  verifiedAt,
		notes:       callerNotes(sub.payload.Notes, existing),
		isOK:        isOK,
		outcome:     outcome,
		createdBy:   createdBy(actor, existing),
		createdAt:   createdAt(now, existing),
		now:         now,
	})
	if err != nil {
		return nil, err
	}
	responses := buildResponses(s.genID, record.ID, answers, now)

	if existing == nil {
		err = s.repo.Insert(ctx, tx, &record, responses)
	} else {
		err = s.repo.Update(ctx, tx, &record, responses)
	}
	if err != nil {
		return nil, err
	}

	return &evaluation{
		equipment:      equipment,
		record:         record,
		responses:      responses,
		outcome:        outcome,
		previousStatus: equipment.Status,
		status:         status,
		replaced:       replaced,
	}, nil
}

// resolveType honours an explicit id, keeps the current type on update and
// otherwise picks the only active type of the equipment type.
func (s *Service) resolveType(ctx context.Context, tx *gorm.DB, workingType *equipmentdomain.TypeDetail, requested string, existing *domain.VerificationRecord) (*domain.VerificationType, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" && existing != nil {
		requested = existing.VerificationTypeID.String()
	}

	if requested != "" {
		id, err := parseID(requested, "verification_type_id")
		if err != nil {
			return nil, err
		}
		vtype, err := s.repo.FindType(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if vtype == nil || vtype.EquipmentTypeID != workingType.Type.ID {
			return nil, domain.NotFound(domain.ErrVerificationTypeNotFound, "verification_type_id",
				fmt.Sprintf("verification type %s does not belong to equipment type %q", id, workingType.Type.Name))
		}
		return vtype, nil
	}

	active, err := s.repo.ListActiveTypes(ctx, tx, workingType.Type.ID)
	if err != nil {
		return nil, err
	}
	if len(active) != 1 {
		return nil, domain.Invalid(domain.ErrAmbiguousVerificationType, "verification_type_id",
			fmt.Sprintf("equipment type %q has %d active verification types, verification_type_id is required", workingType.Type.Name, len(active)))
	}
	return &active[0], nil
}

// resolveReference loads and checks the reference instrument. Without a
// comparison rule a supplied reference is only required to exist.
func (s *Service) resolveReference(ctx context.Context, tx *gorm.DB, kind rules.Kind, working *equipmentdomain.Equipment, workingType *equipmentdomain.TypeDetail, requested string) (*equipmentdomain.Equipment, *equipmentdomain.TypeDetail, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		if kind.RequiresReference() {
			return nil, nil, rules.CheckReference(kind, working, workingType, nil, nil)
		}
		return nil, nil, nil
	}

	id, err := parseID(requested, "reference_equipment_id")
	if err != nil {
		return nil, nil, err
	}
	ref, err := s.equipmentRepo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if ref == nil {
		return nil, nil, domain.NotFound(domain.ErrReferenceNotFound, "reference_equipment_id", fmt.Sprintf("reference equipment %s not found", id))
	}
	if !kind.RequiresReference() {
		if ref.ID == working.ID {
			return nil, nil, domain.Invalid(domain.ErrSelfReference, "reference_equipment_id", "equipment cannot be its own reference")
		}
		return ref, nil, nil
	}

	refType, err := s.findEquipmentType(ctx, tx, ref.EquipmentTypeID)
	if err != nil {
		return nil, nil, err
	}
	if refType == nil {
		return nil, nil, domain.NotFound(domain.ErrEquipmentTypeNotFound, "reference_equipment_id", fmt.Sprintf("equipment type %s not found", ref.EquipmentTypeID))
	}
	if err := rules.CheckReference(kind, working, workingType, ref, refType); err != nil {
		return nil, nil, err
	}
	return ref, refType, nil
}

// resolveSameDayConflict enforces one record per equipment, type and
// calendar day. Replacing requires its own permission and returns the ids
// of the deleted records.
func (s *Service) resolveSameDayConflict(ctx context.Context, tx *gorm.DB, sub submission, equipment *equipmentdomain.Equipment, vtype *domain.VerificationType, verifiedAt time.Time, excludeID snowflake.ID) ([]snowflake.ID, error) {
	start, end := precondition.DayBounds(verifiedAt, s.checker.Location())
	sameDay, err := s.repo.FindInWindow(ctx, tx, equipment.ID, vtype.ID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	if len(sameDay) == 0 {
		return nil, nil
	}
	day := start.In(s.checker.Location()).Format(time.DateOnly)
	if !sub.replace {
		return nil, domain.Conflict(domain.ErrVerificationExists,
			fmt.Sprintf("verification %q already recorded for equipment %s on %s", vtype.Name, equipment.ID, day))
	}
	if err := s.authorize(ctx, equipment, authorization.ActionVerificationReplace); err != nil {
		return nil, err
	}

	replaced := make([]snowflake.ID, 0, len(sameDay))
	for _, prior := range sameDay {
		if err := s.repo.Delete(ctx, tx, prior.ID); err != nil {
			return nil, err
		}
		replaced = append(replaced, prior.ID)
	}
	return replaced, nil
}

// findEquipmentType reads the catalog through the type cache when one is
// configured.
func (s *Service) findEquipmentType(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*equipmentdomain.TypeDetail, error) {
	if s.typeCache != nil {
		if detail, ok := s.typeCache.GetType(id); ok {
			return detail, nil
		}
	}
	detail, err := s.equipmentRepo.FindType(ctx, tx, id)
	if err != nil || detail == nil {
		return detail, err
	}
	if s.typeCache != nil {
		s.typeCache.SetType(id, detail)
	}
	return detail, nil
}

func (s *Service) verifiedAt(payload domain.Payload, existing *domain.VerificationRecord) time.Time {
	switch {
	case payload.VerifiedAt != nil && !payload.VerifiedAt.IsZero():
		return payload.VerifiedAt.UTC()
	case existing != nil:
		return existing.VerifiedAt.UTC()
	default:
		return s.clock.Now().UTC()
	}
}

func (s *Service) newRecordID(existing *domain.VerificationRecord) snowflake.ID {
	if existing != nil {
		return existing.ID
	}
	return s.genID.Generate()
}

func createdBy(actor actorcontext.Actor, existing *domain.VerificationRecord) *string {
	if existing != nil {
		return existing.CreatedByUserID
	}
	return actor.UserIDPtr()
}

func createdAt(now time.Time, existing *domain.VerificationRecord) time.Time {
	if existing != nil {
		return existing.CreatedAt
	}
	return now
}
