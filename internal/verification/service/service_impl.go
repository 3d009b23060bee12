package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/actorcontext"
	auditdomain "github.com/smallbiznis/metrolab/internal/audit/domain"
	"github.com/smallbiznis/metrolab/internal/authorization"
	"github.com/smallbiznis/metrolab/internal/cache"
	calibrationdomain "github.com/smallbiznis/metrolab/internal/calibration/domain"
	"github.com/smallbiznis/metrolab/internal/clock"
	"github.com/smallbiznis/metrolab/internal/config"
	equipmentdomain "github.com/smallbiznis/metrolab/internal/equipment/domain"
	inspectiondomain "github.com/smallbiznis/metrolab/internal/inspection/domain"
	obslogger "github.com/smallbiznis/metrolab/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/metrolab/internal/observability/metrics"
	"github.com/smallbiznis/metrolab/internal/observability/tracing"
	"github.com/smallbiznis/metrolab/internal/ratelimit"
	"github.com/smallbiznis/metrolab/internal/verification/domain"
	"github.com/smallbiznis/metrolab/internal/verification/precondition"
	"github.com/smallbiznis/metrolab/pkg/db/pagination"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config

	Repo            domain.Repository
	EquipmentRepo   equipmentdomain.Repository
	CalibrationRepo calibrationdomain.Repository
	InspectionRepo  inspectiondomain.Repository

	Rules       *config.RulesConfigHolder       `optional:"true"`
	TypeCache   cache.EquipmentTypeCache        `optional:"true"`
	Authz       authorization.Service           `optional:"true"`
	AuditSvc    auditdomain.Service             `optional:"true"`
	Limiter     *ratelimit.SubmissionLimiter    `optional:"true"`
	Metrics     *obsmetrics.Metrics             `optional:"true"`
	PromMetrics *obsmetrics.VerificationMetrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	equipmentRepo equipmentdomain.Repository
	checker       *precondition.Checker
	rules         *config.RulesConfigHolder
	typeCache     cache.EquipmentTypeCache

	authz       authorization.Service
	auditSvc    auditdomain.Service
	limiter     *ratelimit.SubmissionLimiter
	metrics     *obsmetrics.Metrics
	promMetrics *obsmetrics.VerificationMetrics
	tracer      trace.Tracer
}

func New(p Params) domain.Service {
	var authz authorization.Service
	if p.Config.Authz.Enabled {
		authz = p.Authz
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("verification.service"),

		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		equipmentRepo: p.EquipmentRepo,
		checker:       precondition.NewChecker(p.CalibrationRepo, p.InspectionRepo, p.Clock, p.Config.Location()),
		rules:         p.Rules,
		typeCache:     p.TypeCache,

		authz:       authz,
		auditSvc:    p.AuditSvc,
		limiter:     p.Limiter,
		metrics:     p.Metrics,
		promMetrics: p.PromMetrics,
		tracer:      otel.Tracer("metrolab/verification"),
	}
}

// submission is one create or update attempt after id parsing.
type submission struct {
	operation   string
	equipmentID snowflake.ID
	// recordID is set on update.
	recordID snowflake.ID
	replace  bool
	payload  domain.Payload
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	equipmentID, err := parseID(req.EquipmentID, "equipment_id")
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, submission{
		operation:   obsmetrics.OperationCreate,
		equipmentID: equipmentID,
		replace:     req.ReplaceExisting,
		payload:     req.Payload,
	})
}

// Update implements domain.Service. The record keeps its id, creator and
// creation time; everything else is evaluated again.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	id, err := parseID(req.ID, "id")
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.NotFound(domain.ErrVerificationNotFound, "id", fmt.Sprintf("verification %s not found", id))
	}
	return s.submit(ctx, submission{
		operation:   obsmetrics.OperationUpdate,
		equipmentID: existing.EquipmentID,
		recordID:    id,
		payload:     req.Payload,
	})
}

// GetByID implements domain.Service.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	recordID, err := parseID(id, "id")
	if err != nil {
		return nil, err
	}
	record, err := s.repo.FindByID(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.NotFound(domain.ErrVerificationNotFound, "id", fmt.Sprintf("verification %s not found", recordID))
	}
	if _, err := s.viewableEquipment(ctx, record.EquipmentID); err != nil {
		return nil, err
	}
	responses, err := s.repo.ListResponses(ctx, s.db, []snowflake.ID{record.ID})
	if err != nil {
		return nil, err
	}
	resp := toResponse(*record, responses)
	return &resp, nil
}

// List implements domain.Service. Records come newest first.
func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	equipmentID, err := parseID(req.EquipmentID, "equipment_id")
	if err != nil {
		return nil, err
	}
	if _, err := s.viewableEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}

	filter := domain.ListFilter{EquipmentID: equipmentID}
	if strings.TrimSpace(req.VerificationTypeID) != "" {
		typeID, err := parseID(req.VerificationTypeID, "verification_type_id")
		if err != nil {
			return nil, err
		}
		filter.VerificationTypeID = typeID
	}
	if strings.TrimSpace(req.PageToken) != "" {
		after, err := decodeListCursor(req.PageToken)
		if err != nil {
			return nil, err
		}
		filter.After = after
	}
	limit := req.Pagination.Limit()
	filter.Limit = limit + 1

	records, err := s.repo.ListByEquipment(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	records, pageInfo, err := pagination.BuildCursorPageInfo(records, limit, func(r domain.VerificationRecord) pagination.Cursor {
		return pagination.Cursor{ID: r.ID.String(), At: r.VerifiedAt.UTC().Format(time.RFC3339Nano)}
	})
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	responses, err := s.repo.ListResponses(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byRecord := make(map[snowflake.ID][]domain.VerificationResponse, len(records))
	for _, r := range responses {
		byRecord[r.VerificationID] = append(byRecord[r.VerificationID], r)
	}

	items := make([]domain.Response, 0, len(records))
	for _, r := range records {
		items = append(items, toResponse(r, byRecord[r.ID]))
	}
	return &domain.ListResponse{Items: items, PageInfo: pageInfo}, nil
}

func (s *Service) viewableEquipment(ctx context.Context, equipmentID snowflake.ID) (*equipmentdomain.Equipment, error) {
	equipment, err := s.equipmentRepo.FindByID(ctx, s.db, equipmentID)
	if err != nil {
		return nil, err
	}
	if equipment == nil {
		return nil, domain.NotFound(domain.ErrEquipmentNotFound, "equipment_id", fmt.Sprintf("equipment %s not found", equipmentID))
	}
	if err := s.authorize(ctx, equipment, authorization.ActionVerificationView); err != nil {
		return nil, err
	}
	return equipment, nil
}

func (s *Service) submit(ctx context.Context, sub submission) (_ *domain.Response, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "verification."+sub.operation, trace.WithAttributes(
		tracing.SafeAttributes(attribute.String("equipment_id", sub.equipmentID.String()))...,
	))
	defer func() {
		s.promMetrics.ObserveDuration(sub.operation, time.Since(started))
		if err != nil {
			s.promMetrics.IncError(sub.operation, err)
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, obsmetrics.ClassifyVerificationError(err))
		}
		span.End()
	}()

	actor, _ := actorcontext.ActorFromContext(ctx)
	if err := s.throttle(ctx, sub.operation, actor); err != nil {
		return nil, err
	}

	release, err := s.lockEquipment(ctx, sub.operation, sub.equipmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *evaluation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.evaluateAndPersist(ctx, tx, sub, actor)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("rule", string(result.outcome.Kind)),
		attribute.Bool("is_ok", result.record.IsOK),
	)...)
	s.afterCommit(ctx, sub, actor, result)

	resp := toResponse(result.record, result.responses)
	return &resp, nil
}

// throttle applies the per-actor token bucket. Redis failures let the
// submission through; the database lock still serializes writes.
func (s *Service) throttle(ctx context.Context, operation string, actor actorcontext.Actor) error {
	if !s.limiter.Enabled() {
		return nil
	}
	res, err := s.limiter.AllowActor(ctx, actor.UserID)
	if err != nil {
		s.log.Warn("submission rate limit unavailable", zap.Error(err))
		return nil
	}
	if res.Allowed {
		return nil
	}
	s.metrics.RecordSubmissionDenied(ctx, operation, obsmetrics.ReasonRateLimited)
	return domain.Conflict(domain.ErrRateLimited, fmt.Sprintf("too many submissions, retry in %s", res.RetryAfter.Round(time.Second)))
}

// lockEquipment takes the cross-instance lock for one equipment. The
// returned release func is always safe to call.
func (s *Service) lockEquipment(ctx context.Context, operation string, equipmentID snowflake.ID) (func(), error) {
	noop := func() {}
	if !s.limiter.Enabled() {
		return noop, nil
	}
	lease, ok, err := s.limiter.LockEquipment(ctx, equipmentID.String())
	if err != nil {
		s.log.Warn("equipment lock unavailable", zap.String("equipment_id", equipmentID.String()), zap.Error(err))
		return noop, nil
	}
	if !ok {
		s.metrics.RecordSubmissionDenied(ctx, operation, "submission_in_progress")
		return noop, domain.Conflict(domain.ErrSubmissionInProgress, fmt.Sprintf("another submission for equipment %s is in progress", equipmentID))
	}
	return func() {
		if err := s.limiter.ReleaseEquipment(context.WithoutCancel(ctx), lease); err != nil {
			s.log.Warn("failed to release equipment lock", zap.String("equipment_id", equipmentID.String()), zap.Error(err))
		}
	}, nil
}

func (s *Service) authorize(ctx context.Context, equipment *equipmentdomain.Equipment, action string) error {
	if s.authz == nil {
		return nil
	}
	actor, _ := actorcontext.ActorFromContext(ctx)
	err := s.authz.Authorize(ctx, actor, equipment.TerminalID, authorization.ObjectVerification, action)
	if err == nil {
		return nil
	}
	if isAuthorizationDenial(err) {
		return forbidden(err)
	}
	return err
}

func isAuthorizationDenial(err error) bool {
	return errors.Is(err, authorization.ErrForbidden) ||
		errors.Is(err, authorization.ErrInvalidActor) ||
		errors.Is(err, authorization.ErrInvalidRole) ||
		errors.Is(err, authorization.ErrInvalidScope)
}

func forbidden(err error) error {
	e := domain.Forbidden(err, "")
	switch {
	case errors.Is(err, authorization.ErrTerminalDenied):
		e.Code = authorization.ErrTerminalDenied.Error()
	case errors.Is(err, authorization.ErrInvalidActor):
		e.Code = authorization.ErrInvalidActor.Error()
	case errors.Is(err, authorization.ErrInvalidRole):
		e.Code = authorization.ErrInvalidRole.Error()
	default:
		e.Code = domain.ErrForbidden.Error()
	}
	return e
}

func (s *Service) afterCommit(ctx context.Context, sub submission, actor actorcontext.Actor, res *evaluation) {
	rule := string(res.outcome.Kind)
	s.metrics.RecordVerification(ctx, sub.operation, rule, res.record.IsOK)
	if res.outcome.Kind.RequiresReference() {
		s.promMetrics.IncEvaluation(rule, res.outcome.Passed)
	}
	if res.previousStatus != res.status {
		s.promMetrics.IncStatusTransition(string(res.status))
	}

	obslogger.WithContext(ctx, s.log).Info("verification recorded",
		zap.String("operation", sub.operation),
		zap.String("verification_id", res.record.ID.String()),
		zap.String("equipment_id", res.record.EquipmentID.String()),
		zap.String("rule", rule),
		zap.Bool("is_ok", res.record.IsOK),
		zap.String("status", string(res.status)),
	)

	if s.auditSvc == nil {
		return
	}
	actorType := string(actor.Type)
	if actorType == "" {
		actorType = string(actorcontext.ActorTypeUser)
	}
	targetID := res.record.ID.String()
	metadata := map[string]any{
		"equipment_id":         res.record.EquipmentID.String(),
		"verification_type_id": res.record.VerificationTypeID.String(),
		"comparison_rule":      rule,
		"is_ok":                res.record.IsOK,
		"previous_status":      string(res.previousStatus),
		"status":               string(res.status),
	}
	if res.record.ComparisonOK != nil {
		metadata["comparison_ok"] = *res.record.ComparisonOK
	}
	if res.outcome.Message != "" {
		metadata["comparison_message"] = res.outcome.Message
	}
	if len(res.replaced) > 0 {
		replaced := make([]any, 0, len(res.replaced))
		for _, id := range res.replaced {
			replaced = append(replaced, id.String())
		}
		metadata["replaced_verification_ids"] = replaced
	}

	action := "verification.created"
	if sub.operation == obsmetrics.OperationUpdate {
		action = "verification.updated"
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		CompanyID:  res.equipment.CompanyID,
		ActorType:  actorType,
		ActorID:    actor.UserID,
		Action:     action,
		TargetType: "verification",
		TargetID:   targetID,
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.String("verification_id", targetID), zap.Error(err))
	}
}

func parseID(value string, field string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, domain.Invalid(domain.ErrInvalidID, field, field+" is required")
	}
	id, err := domain.ParseID(trimmed)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(domain.ErrInvalidID, field, fmt.Sprintf("invalid %s %q", field, value))
	}
	return id, nil
}

func decodeListCursor(token string) (*domain.ListCursor, error) {
	invalid := domain.Invalid(domain.ErrInvalidRequest, "page_token", "invalid page token")
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, invalid
	}
	id, err := domain.ParseID(cursor.ID)
	if err != nil {
		return nil, invalid
	}
	at, err := time.Parse(time.RFC3339Nano, cursor.At)
	if err != nil {
		return nil, invalid
	}
	return &domain.ListCursor{ID: id, VerifiedAt: at.UTC()}, nil
}
