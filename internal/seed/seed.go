package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	"github.com/smallbiznis/metrolab/internal/units"
	verificationdomain "github.com/smallbiznis/metrolab/internal/verification/domain"
	"gorm.io/gorm"
)

type measureSeed struct {
	Measure  units.Measure
	MaxError *float64
}

type verificationTypeSeed struct {
	Name          string
	FrequencyDays int
	Items         []itemSeed
}

type itemSeed struct {
	Item         string
	ResponseType verificationdomain.ResponseType
	ExpectedBool *bool
}

type typeSeed struct {
	Name            string
	Role            equipmentdomain.Role
	CalibrationDays int
	InspectionDays  int
	Measures        []measureSeed
	Verifications   []verificationTypeSeed
}

func ptr[T any](v T) *T { return &v }

var physicalCheck = []itemSeed{
	{Item: "Instrument is clean and undamaged", ResponseType: verificationdomain.ResponseTypeBoolean, ExpectedBool: ptr(true)},
	{Item: "Observations", ResponseType: verificationdomain.ResponseTypeText},
}

var catalog = []typeSeed{
	{
		Name: "Termometro electronico", Role: equipmentdomain.RoleWorking, CalibrationDays: 365, InspectionDays: 1,
		Measures: []measureSeed{{Measure: units.MeasureTemperature}},
		Verifications: []verificationTypeSeed{
			{Name: "Daily", FrequencyDays: 1, Items: physicalCheck},
			{Name: "Monthly", FrequencyDays: 30, Items: physicalCheck},
		},
	},
	{
		Name: "Termometro electronico", Role: equipmentdomain.RoleReference, CalibrationDays: 365, InspectionDays: 1,
		Measures: []measureSeed{{Measure: units.MeasureTemperature}},
	},
	{
		Name: "Cinta metrica", Role: equipmentdomain.RoleWorking, CalibrationDays: 365, InspectionDays: 1,
		Measures:      []measureSeed{{Measure: units.MeasureLength}},
		Verifications: []verificationTypeSeed{{Name: "Daily", FrequencyDays: 1, Items: physicalCheck}},
	},
	{
		Name: "Cinta metrica", Role: equipmentdomain.RoleReference, CalibrationDays: 365, InspectionDays: 1,
		Measures: []measureSeed{{Measure: units.MeasureLength}},
	},
	{
		Name: "Balanza analitica", Role: equipmentdomain.RoleWorking, CalibrationDays: 365, InspectionDays: 1,
		Measures:      []measureSeed{{Measure: units.MeasureWeight, MaxError: ptr(0.0001)}},
		Verifications: []verificationTypeSeed{{Name: "Daily", FrequencyDays: 1, Items: physicalCheck}},
	},
	{
		Name: "Pesa patron", Role: equipmentdomain.RoleReference, CalibrationDays: 730, InspectionDays: 1,
		Measures: []measureSeed{{Measure: units.MeasureWeight}},
	},
	{
		Name: "Hidrometro", Role: equipmentdomain.RoleWorking, CalibrationDays: 365, InspectionDays: 1,
		Measures: []measureSeed{{Measure: units.MeasureAPI}, {Measure: units.MeasureTemperature}},
		Verifications: []verificationTypeSeed{
			{Name: "Daily", FrequencyDays: 1, Items: physicalCheck},
			{Name: "Monthly", FrequencyDays: 30, Items: physicalCheck},
		},
	},
	{
		Name: "Hidrometro", Role: equipmentdomain.RoleReference, CalibrationDays: 365, InspectionDays: 1,
		Measures: []measureSeed{{Measure: units.MeasureAPI}},
	},
	{
		Name: "Titulador Karl Fischer", Role: equipmentdomain.RoleWorking, CalibrationDays: 365, InspectionDays: 1,
		Measures:      []measureSeed{{Measure: units.MeasurePercentPV}},
		Verifications: []verificationTypeSeed{{Name: "Daily", FrequencyDays: 1, Items: physicalCheck}},
	},
}

// EnsureCatalog inserts the standard equipment types with their measures,
// verification types and checklist items. Existing (name, role) pairs are
// left untouched.
func EnsureCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range catalog {
			if err := ensureTypeTx(ctx, tx, node, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureTypeTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, entry typeSeed) error {
	var existing equipmentdomain.EquipmentType
	err := tx.WithContext(ctx).Where("name = ? AND role = ?", entry.Name, entry.Role).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	equipmentType := equipmentdomain.EquipmentType{
		ID:              node.Generate(),
		Name:            entry.Name,
		Role:            entry.Role,
		CalibrationDays: entry.CalibrationDays,
		InspectionDays:  entry.InspectionDays,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.WithContext(ctx).Create(&equipmentType).Error; err != nil {
		return err
	}

	for _, m := range entry.Measures {
		measure := equipmentdomain.EquipmentTypeMeasure{
			ID:              node.Generate(),
			EquipmentTypeID: equipmentType.ID,
			Measure:         m.Measure,
			MaxError:        m.MaxError,
		}
		if err := tx.WithContext(ctx).Create(&measure).Error; err != nil {
			return err
		}
	}

	for order, v := range entry.Verifications {
		verificationType := verificationdomain.VerificationType{
			ID:              node.Generate(),
			EquipmentTypeID: equipmentType.ID,
			Name:            v.Name,
			FrequencyDays:   v.FrequencyDays,
			IsActive:        true,
			DisplayOrder:    order,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.WithContext(ctx).Create(&verificationType).Error; err != nil {
			return err
		}
		for itemOrder, item := range v.Items {
			row := verificationdomain.VerificationItem{
				ID:                 node.Generate(),
				EquipmentTypeID:    equipmentType.ID,
				VerificationTypeID: verificationType.ID,
				Item:               item.Item,
				ResponseType:       item.ResponseType,
				IsRequired:         true,
				ExpectedBool:       item.ExpectedBool,
				DisplayOrder:       itemOrder,
				IsActive:           true,
			}
			if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
