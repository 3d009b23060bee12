// Package checklist validates and grades the item responses of a
// verification submission.
package checklist

import (
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
)

const numberTolerance = 1e-9

// Answer is a response matched to the item it answers. Passed is nil when
// the item has no expectation.
type Answer struct {
	Item   domain.VerificationItem
	Input  domain.ResponseInput
	Passed *bool
}

// Validate matches responses to items and rejects unknown or duplicated
// items, missing required items and values that do not fit the declared
// response type. Answers come back in item display order.
func Validate(items []domain.VerificationItem, responses []domain.ResponseInput) ([]Answer, error) {
	byID := make(map[snowflake.ID]domain.VerificationItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	answered := make(map[snowflake.ID]domain.ResponseInput, len(responses))
	for i, r := range responses {
		field := fmt.Sprintf("responses[%d].verification_item_id", i)
		id, err := domain.ParseID(r.VerificationItemID)
		if err != nil {
			return nil, domain.Invalid(domain.ErrInvalidID, field, fmt.Sprintf("invalid item id %q", r.VerificationItemID))
		}
		item, ok := byID[id]
		if !ok {
			return nil, domain.NotFound(domain.ErrVerificationItemNotFound, field, fmt.Sprintf("item %s does not belong to this verification type", id))
		}
		if _, dup := answered[id]; dup {
			return nil, domain.Invalid(domain.ErrDuplicateItem, field, fmt.Sprintf("item %s answered more than once", id))
		}
		if err := checkValue(item, r, i); err != nil {
			return nil, err
		}
		answered[id] = r
	}

	answers := make([]Answer, 0, len(answered))
	for _, item := range items {
		r, ok := answered[item.ID]
		if !ok {
			if item.IsRequired {
				return nil, domain.Invalid(domain.ErrMissingRequiredItem, "responses", fmt.Sprintf("required item %q (%s) is not answered", item.Item, item.ID))
			}
			continue
		}
		answers = append(answers, Answer{Item: item, Input: r})
	}
	return answers, nil
}

func checkValue(item domain.VerificationItem, r domain.ResponseInput, idx int) error {
	field := fmt.Sprintf("responses[%d]", idx)
	if !r.ResponseType.Valid() || r.ResponseType != item.ResponseType {
		return domain.Invalid(domain.ErrResponseTypeMismatch, field+".response_type",
			fmt.Sprintf("item %s expects %s, got %q", item.ID, item.ResponseType, r.ResponseType))
	}
	switch r.ResponseType {
	case domain.ResponseTypeBoolean:
		if r.ValueBool == nil {
			return domain.Invalid(domain.ErrMissingResponseValue, field+".value_bool", "boolean value is required")
		}
	case domain.ResponseTypeText:
		if r.ValueText == nil || strings.TrimSpace(*r.ValueText) == "" {
			return domain.Invalid(domain.ErrMissingResponseValue, field+".value_text", "text value is required")
		}
	case domain.ResponseTypeNumber:
		if r.ValueNumber == nil || math.IsNaN(*r.ValueNumber) || math.IsInf(*r.ValueNumber, 0) {
			return domain.Invalid(domain.ErrMissingResponseValue, field+".value_number", "numeric value is required")
		}
	}
	return nil
}

// Grade compares a validated response with the item expectation.
func Grade(item domain.VerificationItem, r domain.ResponseInput) *bool {
	var ok bool
	switch item.ResponseType {
	case domain.ResponseTypeBoolean:
		if item.ExpectedBool == nil || r.ValueBool == nil {
			return nil
		}
		ok = *item.ExpectedBool == *r.ValueBool
	case domain.ResponseTypeText:
		if len(item.ExpectedTextOptions) == 0 || r.ValueText == nil {
			return nil
		}
		got := foldText(*r.ValueText)
		for _, opt := range item.ExpectedTextOptions {
			if foldText(opt) == got {
				ok = true
				break
			}
		}
	case domain.ResponseTypeNumber:
		if r.ValueNumber == nil {
			return nil
		}
		v := *r.ValueNumber
		switch {
		case item.ExpectedNumber != nil:
			ok = math.Abs(v-*item.ExpectedNumber) <= boundTolerance(*item.ExpectedNumber)
		case item.ExpectedMin != nil || item.ExpectedMax != nil:
			ok = (item.ExpectedMin == nil || v >= *item.ExpectedMin-boundTolerance(*item.ExpectedMin)) &&
				(item.ExpectedMax == nil || v <= *item.ExpectedMax+boundTolerance(*item.ExpectedMax))
		default:
			return nil
		}
	default:
		return nil
	}
	return &ok
}

// GradeAll grades every answer in place and reports whether no graded
// answer failed. Ungraded answers do not affect the result.
func GradeAll(answers []Answer) bool {
	all := true
	for i := range answers {
		answers[i].Passed = Grade(answers[i].Item, answers[i].Input)
		if answers[i].Passed != nil && !*answers[i].Passed {
			all = false
		}
	}
	return all
}

func foldText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// boundTolerance absorbs float noise around an expected value, scaled for
// magnitudes above one.
func boundTolerance(bound float64) float64 {
	return numberTolerance * math.Max(1, math.Abs(bound))
}
