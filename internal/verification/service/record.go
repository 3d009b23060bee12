package service

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	"github.com/smallbiznis/metrolab/internal/verification/checklist"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
	"github.com/smallbiznis/metrolab/internal/verification/rules"
	"gorm.io/datatypes"
)

// comparisonDetails is the stored form of a rule outcome.
type comparisonDetails struct {
	Message string         `json:"message,omitempty"`
	Note    string         `json:"note,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type recordInput struct {
	id          snowflake.ID
	equipmentID snowflake.ID
	vtypeID     snowflake.ID
	reference   *equipmentdomain.Equipment
	verifiedAt  time.Time
	notes       *string
	isOK        bool
	outcome     rules.Outcome
	createdBy   *string
	createdAt   time.Time
	now         time.Time
}

// deriveVerdict is the overall result: every graded answer passed and the
// comparison, when there is one, passed too.
func deriveVerdict(checklistOK bool, outcome rules.Outcome) bool {
	return checklistOK && outcome.Passed
}

func statusFor(isOK bool) equipmentdomain.Status {
	if isOK {
		return equipmentdomain.StatusInUse
	}
	return equipmentdomain.StatusNeedsReview
}

func buildRecord(in recordInput) (domain.VerificationRecord, error) {
	kind := in.outcome.Kind
	if kind == "" {
		kind = rules.KindNone
	}

	record := domain.VerificationRecord{
		ID:                 in.id,
		EquipmentID:        in.equipmentID,
		VerificationTypeID: in.vtypeID,
		VerifiedAt:         in.verifiedAt,
		Notes:              composeNotes(in.notes, in.outcome.Note),
		IsOK:               in.isOK,
		ComparisonRule:     string(kind),
		CreatedByUserID:    in.createdBy,
		CreatedAt:          in.createdAt,
		UpdatedAt:          in.now,
	}
	if in.reference != nil {
		refID := in.reference.ID
		record.ReferenceID = &refID
	}
	if kind.RequiresReference() {
		passed := in.outcome.Passed
		record.ComparisonOK = &passed
	}

	details := comparisonDetails{
		Message: in.outcome.Message,
		Note:    in.outcome.Note,
		Details: in.outcome.Details,
	}
	if details.Message != "" || details.Note != "" || len(details.Details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return domain.VerificationRecord{}, err
		}
		record.ComparisonDetails = datatypes.JSON(raw)
	}
	return record, nil
}

func buildResponses(genID *snowflake.Node, verificationID snowflake.ID, answers []checklist.Answer, now time.Time) []domain.VerificationResponse {
	out := make([]domain.VerificationResponse, 0, len(answers))
	for _, a := range answers {
		out = append(out, domain.VerificationResponse{
			ID:                 genID.Generate(),
			VerificationID:     verificationID,
			VerificationItemID: a.Item.ID,
			ResponseType:       a.Item.ResponseType,
			ValueBool:          a.Input.ValueBool,
			ValueText:          a.Input.ValueText,
			ValueNumber:        a.Input.ValueNumber,
			IsOK:               a.Passed,
			CreatedAt:          now,
		})
	}
	return out
}

// composeNotes appends the comparison audit line to the caller text.
func composeNotes(caller *string, note string) *string {
	parts := make([]string, 0, 2)
	if caller != nil {
		if trimmed := strings.TrimSpace(*caller); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, "\n")
	return &joined
}

// callerNotes returns the caller text for a submission. An update that
// omits notes keeps the previous caller text without its old audit line.
func callerNotes(supplied *string, existing *domain.VerificationRecord) *string {
	if supplied != nil || existing == nil || existing.Notes == nil {
		return supplied
	}
	notes := *existing.Notes
	if note := decodeDetails(existing.ComparisonDetails).Note; note != "" {
		notes = strings.TrimSuffix(notes, note)
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil
	}
	return &notes
}

func decodeDetails(raw datatypes.JSON) comparisonDetails {
	var details comparisonDetails
	if len(raw) == 0 {
		return details
	}
	_ = json.Unmarshal(raw, &details)
	return details
}

func toResponse(record domain.VerificationRecord, responses []domain.VerificationResponse) domain.Response {
	details := decodeDetails(record.ComparisonDetails)
	resp := domain.Response{
		ID:                 record.ID.String(),
		EquipmentID:        record.EquipmentID.String(),
		VerificationTypeID: record.VerificationTypeID.String(),
		VerifiedAt:         record.VerifiedAt.UTC(),
		Notes:              record.Notes,
		IsOK:               record.IsOK,
		ComparisonRule:     record.ComparisonRule,
		ComparisonOK:       record.ComparisonOK,
		ComparisonMessage:  details.Message,
		ComparisonNote:     details.Note,
		CreatedByUserID:    record.CreatedByUserID,
		Responses:          make([]domain.ResponseView, 0, len(responses)),
		CreatedAt:          record.CreatedAt.UTC(),
		UpdatedAt:          record.UpdatedAt.UTC(),
	}
	if record.ReferenceID != nil {
		refID := record.ReferenceID.String()
		resp.ReferenceEquipmentID = &refID
	}
	for _, r := range responses {
		resp.Responses = append(resp.Responses, domain.ResponseView{
			ID:                 r.ID.String(),
			VerificationItemID: r.VerificationItemID.String(),
			ResponseType:       r.ResponseType,
			ValueBool:          r.ValueBool,
			ValueText:          r.ValueText,
			ValueNumber:        r.ValueNumber,
			IsOK:               r.IsOK,
		})
	}
	return resp
}
