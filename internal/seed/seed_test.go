package seed

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	verificationdomain "github.com/smallbiznis/metrolab/internal/verification/domain"
	"github.com/smallbiznis/metrolab/internal/verification/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEnsureCatalogIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, EnsureCatalog(db))
	require.NoError(t, EnsureCatalog(db))

	var types []equipmentdomain.EquipmentType
	require.NoError(t, db.Find(&types).Error)
	assert.Len(t, types, len(catalog))

	var vtypes int64
	require.NoError(t, db.Model(&verificationdomain.VerificationType{}).Count(&vtypes).Error)
	assert.Equal(t, int64(7), vtypes)
}

func TestCatalogNamesResolveToRuleFamilies(t *testing.T) {
	for _, entry := range catalog {
		assert.NotEqual(t, rules.FamilyUnknown, rules.FamilyOf(entry.Name), entry.Name)
	}
}

func TestEnsureCatalogRejectsNilDB(t *testing.T) {
	assert.Error(t, EnsureCatalog(nil))
}

func newTestDB(t *testing.T) *gorm.DB {
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
		&verificationdomain.VerificationType{},
		&verificationdomain.VerificationItem{},
	))
	return db
}
