package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/metrolab/internal/actorcontext"
	auditdomain "github.com/smallbiznis/metrolab/internal/audit/domain"
	"github.com/smallbiznis/metrolab/internal/audit/masking"
	"github.com/smallbiznis/metrolab/internal/clock"
	"github.com/smallbiznis/metrolab/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// Record writes entry, filling company and actor from the request context
// when the caller leaves them unset. Metadata is masked before it is stored.
func (s *Service) Record(ctx context.Context, e auditdomain.Entry) error {
	if e.Action = strings.TrimSpace(e.Action); e.Action == "" {
		return auditdomain.ErrInvalidAction
	}

	actor, hasActor := actorcontext.ActorFromContext(ctx)
	if e.CompanyID == 0 && hasActor {
		e.CompanyID = actor.CompanyID
	}
	if strings.TrimSpace(e.ActorType) == "" {
		e.ActorType = string(auditdomain.ActorTypeSystem)
		if hasActor && actor.Type != "" {
			e.ActorType = string(actor.Type)
			if strings.TrimSpace(e.ActorID) == "" {
				e.ActorID = actor.UserID
			}
		}
	}

	meta := actorcontext.RequestMetaFromContext(ctx)
	metadata := masking.MaskMetadata(e.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	if meta.RequestID != "" {
		metadata["request_id"] = meta.RequestID
	}

	row := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  strings.TrimSpace(e.ActorType),
		ActorID:    optional(e.ActorID),
		Action:     e.Action,
		TargetType: strings.TrimSpace(e.TargetType),
		TargetID:   optional(e.TargetID),
		Metadata:   datatypes.JSONMap(metadata),
		IPAddress:  optional(meta.IPAddress),
		UserAgent:  optional(meta.UserAgent),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if e.CompanyID != 0 {
		companyID := e.CompanyID
		row.CompanyID = &companyID
	}
	if row.TargetType == "" {
		row.TargetType = "unknown"
	}

	if err := s.repo.Insert(ctx, s.db, row); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", row.Action),
			zap.String("target_type", row.TargetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// List pages through the caller's company trail, newest first.
func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	companyID, ok := actorcontext.CompanyIDFromContext(ctx)
	if !ok {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidCompany
	}
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	cursor, err := decodeCursor(req.PageToken)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	limit := req.Limit()
	rows, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		CompanyID:  companyID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	rows, pageInfo, err := pagination.BuildCursorPageInfo(rows, limit, func(row *auditdomain.AuditLog) pagination.Cursor {
		return pagination.Cursor{ID: row.ID.String(), At: row.CreatedAt.UTC().Format(time.RFC3339Nano)}
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	resp := auditdomain.ListAuditLogResponse{PageInfo: pageInfo, AuditLogs: make([]auditdomain.AuditLog, 0, len(rows))}
	for _, row := range rows {
		if row != nil {
			resp.AuditLogs = append(resp.AuditLogs, *row)
		}
	}
	return resp, nil
}

func decodeCursor(token string) (*auditdomain.AuditCursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, auditdomain.ErrInvalidPageToken
	}
	at, err := time.Parse(time.RFC3339Nano, decoded.At)
	if err != nil {
		return nil, auditdomain.ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
	if err != nil || id <= 0 {
		return nil, auditdomain.ErrInvalidPageToken
	}
	return &auditdomain.AuditCursor{ID: id, CreatedAt: at.UTC()}, nil
}

func optional(value string) *string {
	if value = strings.TrimSpace(value); value == "" {
		return nil
	}
	return &value
}
