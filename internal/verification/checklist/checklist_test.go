package checklist

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func boolp(v bool) *bool          { return &v }
func strp(v string) *string       { return &v }
func nump(v float64) *float64     { return &v }
func idOf(id snowflake.ID) string { return id.String() }

func fixtureItems() []domain.VerificationItem {
	return []domain.VerificationItem{
		{ID: 1, Item: "Bulbo sin burbujas", ResponseType: domain.ResponseTypeBoolean, IsRequired: true, ExpectedBool: boolp(true)},
		{ID: 2, Item: "Estado de la escala", ResponseType: domain.ResponseTypeText, IsRequired: true, ExpectedTextOptions: datatypes.JSONSlice[string]{"Legible", "Buena"}},
		{ID: 3, Item: "Lectura de control", ResponseType: domain.ResponseTypeNumber, IsRequired: false, ExpectedMin: nump(9.5), ExpectedMax: nump(10.5)},
		{ID: 4, Item: "Observaciones", ResponseType: domain.ResponseTypeText, IsRequired: false},
	}
}

func TestValidateAndGrade(t *testing.T) {
	responses := []domain.ResponseInput{
		{VerificationItemID: idOf(2), ResponseType: domain.ResponseTypeText, ValueText: strp("  LEGIBLE ")},
		{VerificationItemID: idOf(1), ResponseType: domain.ResponseTypeBoolean, ValueBool: boolp(true)},
		{VerificationItemID: idOf(3), ResponseType: domain.ResponseTypeNumber, ValueNumber: nump(10.5)},
		{VerificationItemID: idOf(4), ResponseType: domain.ResponseTypeText, ValueText: strp("ok")},
	}
	answers, err := Validate(fixtureItems(), responses)
	require.NoError(t, err)
	require.Len(t, answers, 4)
	assert.Equal(t, snowflake.ID(1), answers[0].Item.ID)

	assert.True(t, GradeAll(answers))
	assert.True(t, *answers[0].Passed)
	assert.True(t, *answers[1].Passed)
	assert.True(t, *answers[2].Passed)
	assert.Nil(t, answers[3].Passed)

	responses[2].ValueNumber = nump(10.6)
	answers, err = Validate(fixtureItems(), responses)
	require.NoError(t, err)
	assert.False(t, GradeAll(answers))
}

func TestValidateRequiredItemMissing(t *testing.T) {
	responses := []domain.ResponseInput{
		{VerificationItemID: idOf(1), ResponseType: domain.ResponseTypeBoolean, ValueBool: boolp(true)},
	}
	_, err := Validate(fixtureItems(), responses)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.ErrorIs(t, err, domain.ErrMissingRequiredItem)
}

func TestValidateRejects(t *testing.T) {
	base := domain.ResponseInput{VerificationItemID: idOf(1), ResponseType: domain.ResponseTypeBoolean, ValueBool: boolp(true)}
	text := domain.ResponseInput{VerificationItemID: idOf(2), ResponseType: domain.ResponseTypeText, ValueText: strp("buena")}

	cases := []struct {
		name      string
		responses []domain.ResponseInput
		want      error
	}{
		{"duplicate", []domain.ResponseInput{base, base, text}, domain.ErrDuplicateItem},
		{"unknown item", []domain.ResponseInput{base, text, {VerificationItemID: "99", ResponseType: domain.ResponseTypeBoolean, ValueBool: boolp(true)}}, domain.ErrVerificationItemNotFound},
		{"bad id", []domain.ResponseInput{{VerificationItemID: "abc"}}, domain.ErrInvalidID},
		{"type mismatch", []domain.ResponseInput{{VerificationItemID: idOf(1), ResponseType: domain.ResponseTypeText, ValueText: strp("si")}, text}, domain.ErrResponseTypeMismatch},
		{"empty text", []domain.ResponseInput{base, {VerificationItemID: idOf(2), ResponseType: domain.ResponseTypeText, ValueText: strp("   ")}}, domain.ErrMissingResponseValue},
		{"nil bool", []domain.ResponseInput{{VerificationItemID: idOf(1), ResponseType: domain.ResponseTypeBoolean}, text}, domain.ErrMissingResponseValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(fixtureItems(), tc.responses)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGradeNumberExact(t *testing.T) {
	item := domain.VerificationItem{ResponseType: domain.ResponseTypeNumber, ExpectedNumber: nump(0.3)}
	got := Grade(item, domain.ResponseInput{ValueNumber: nump(0.1 + 0.2)})
	require.NotNil(t, got)
	assert.True(t, *got)

	got = Grade(item, domain.ResponseInput{ValueNumber: nump(0.31)})
	require.NotNil(t, got)
	assert.False(t, *got)
}

func TestGradeNumberRangeBoundsAreInclusive(t *testing.T) {
	item := domain.VerificationItem{ResponseType: domain.ResponseTypeNumber, ExpectedMin: nump(0.3), ExpectedMax: nump(0.5)}
	cases := []struct {
		value float64
		want  bool
	}{
		{0.7 - 0.4, true},
		{0.3, true},
		{0.5, true},
		{0.29, false},
		{0.51, false},
	}
	for _, tc := range cases {
		got := Grade(item, domain.ResponseInput{ValueNumber: nump(tc.value)})
		require.NotNil(t, got)
		assert.Equal(t, tc.want, *got, "value %v", tc.value)
	}

	upper := domain.VerificationItem{ResponseType: domain.ResponseTypeNumber, ExpectedMax: nump(0.3)}
	got := Grade(upper, domain.ResponseInput{ValueNumber: nump(0.1 + 0.2)})
	require.NotNil(t, got)
	assert.True(t, *got)

	got = Grade(upper, domain.ResponseInput{ValueNumber: nump(0.31)})
	require.NotNil(t, got)
	assert.False(t, *got)
}

func TestGradeWithoutExpectationIsUnknown(t *testing.T) {
	item := domain.VerificationItem{ResponseType: domain.ResponseTypeBoolean}
	assert.Nil(t, Grade(item, domain.ResponseInput{ValueBool: boolp(false)}))
	assert.True(t, GradeAll([]Answer{{Item: item, Input: domain.ResponseInput{ValueBool: boolp(false)}}}))
}
