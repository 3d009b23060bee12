package rules

import (
	"fmt"

	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	"github.com/smallbiznis/metrolab/internal/units"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
)

// CheckReference validates the instrument a working instrument is compared
// against. It must be a different, active instrument on the same terminal,
// usable right now, and of the family the rule expects.
func CheckReference(kind Kind, working *equipmentdomain.Equipment, workingType *equipmentdomain.TypeDetail, ref *equipmentdomain.Equipment, refType *equipmentdomain.TypeDetail) error {
	if ref == nil || refType == nil {
		return domain.Invalid(domain.ErrReferenceRequired, "reference_equipment_id", fmt.Sprintf("%s comparison requires a reference instrument", kind))
	}
	if ref.ID == working.ID {
		return domain.Invalid(domain.ErrSelfReference, "reference_equipment_id", "equipment cannot be its own reference")
	}
	if !ref.IsActive {
		return invalidReference("reference instrument is inactive")
	}
	if ref.TerminalID != working.TerminalID {
		return invalidReference("reference instrument belongs to another terminal")
	}
	if ref.Status != equipmentdomain.StatusInUse && ref.Status != equipmentdomain.StatusStored {
		return invalidReference(fmt.Sprintf("reference instrument status %q is not usable", ref.Status))
	}

	role := refType.Type.Role
	family := FamilyOf(refType.Type.Name)
	switch kind {
	case KindTemperature:
		if role != equipmentdomain.RoleReference || !refType.Supports(units.MeasureTemperature) {
			return invalidReference("temperature comparison needs a reference thermometer")
		}
	case KindTape:
		if role != equipmentdomain.RoleReference || family != FamilyTape ||
			FoldName(refType.Type.Name) != FoldName(workingType.Type.Name) {
			return invalidReference("tape comparison needs a reference tape of the same type")
		}
	case KindBalance:
		if role != equipmentdomain.RoleReference || family != FamilyWeight {
			return invalidReference("balance comparison needs a reference weight")
		}
		if _, ok := ref.Profile().(equipmentdomain.WeightReferenceProfile); !ok {
			return invalidReference("reference weight has no nominal mass")
		}
		if err := ref.ValidateProfile(); err != nil {
			return domain.Invalid(err, "reference_equipment_id", "reference weight profile is incomplete")
		}
	case KindHydrometer:
		if role != equipmentdomain.RoleReference || family != FamilyHydrometer {
			return invalidReference("hydrometer comparison needs a reference hydrometer")
		}
	case KindKarlFischer:
		if family != FamilyBalance {
			return invalidReference("Karl Fischer standardization needs an analytical balance")
		}
	}
	return nil
}

func invalidReference(msg string) error {
	return domain.Invalid(domain.ErrInvalidReference, "reference_equipment_id", msg)
}
