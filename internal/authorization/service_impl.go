package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/metrolab/internal/actorcontext"
	auditdomain "github.com/smallbiznis/metrolab/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectVerification = "verification"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionVerificationView   = "verification.view"
	ActionVerificationCreate = "verification.create"
	ActionVerificationUpdate = "verification.update"
	// ActionVerificationReplace is checked in addition to create when a
	// submission overwrites the records of the same day.
	ActionVerificationReplace = "verification.replace"

	ActionAuditLogView = "audit_log.view"
)

const (
	RoleTechnician = "technician"
	RoleSupervisor = "supervisor"
	RoleAuditor    = "auditor"
	RoleAdmin      = "admin"
	RoleSystem     = "system"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor actorcontext.Actor, terminalID snowflake.ID, object string, action string) error {
	object, action, err := normalizeRequest(object, action)
	if err != nil {
		return err
	}
	if terminalID == 0 {
		return ErrInvalidScope
	}

	subject, roleName, err := resolveActor(actor)
	if err != nil {
		s.auditDenied(ctx, actor, "terminal", terminalID, object, action, err)
		return err
	}
	if !actor.CanAccessTerminal(terminalID) {
		s.auditDenied(ctx, actor, "terminal", terminalID, object, action, ErrTerminalDenied)
		return fmt.Errorf("%w: %w", ErrForbidden, ErrTerminalDenied)
	}
	return s.enforce(ctx, actor, subject, roleName, "terminal", terminalID, object, action)
}

func (s *ServiceImpl) AuthorizeCompany(ctx context.Context, actor actorcontext.Actor, object string, action string) error {
	object, action, err := normalizeRequest(object, action)
	if err != nil {
		return err
	}
	if actor.CompanyID == 0 {
		return ErrInvalidScope
	}

	subject, roleName, err := resolveActor(actor)
	if err != nil {
		s.auditDenied(ctx, actor, "company", actor.CompanyID, object, action, err)
		return err
	}
	return s.enforce(ctx, actor, subject, roleName, "company", actor.CompanyID, object, action)
}

func (s *ServiceImpl) enforce(ctx context.Context, actor actorcontext.Actor, subject string, roleName string, scope string, scopeID snowflake.ID, object string, action string) error {
	domain := fmt.Sprintf("%s:%s", scope, scopeID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, scope, scopeID, object, action, ErrForbidden)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditGranted(ctx, actor, scope, scopeID, object, action)
	}
	return nil
}

func normalizeRequest(object string, action string) (string, string, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return "", "", ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return "", "", ErrInvalidAction
	}
	return object, action, nil
}

func resolveActor(actor actorcontext.Actor) (string, string, error) {
	if actor.Type == actorcontext.ActorTypeSystem {
		return "system", "role:" + RoleSystem, nil
	}
	userID := strings.TrimSpace(actor.UserID)
	if userID == "" {
		return "", "", ErrInvalidActor
	}
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	switch role {
	case RoleTechnician, RoleSupervisor, RoleAuditor, RoleAdmin:
	case "":
		return "", "", ErrInvalidRole
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return "user:" + userID, "role:" + role, nil
}

// ensureGrouping keeps exactly one role per subject and terminal. The role
// asserted on the request replaces whatever was stored before.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor actorcontext.Actor, scope string, scopeID snowflake.ID, object string, action string, reason error) {
	s.log.Info("authorization denied",
		zap.String("user_id", actor.UserID),
		zap.String("role", actor.Role),
		zap.String("scope", scope),
		zap.String("scope_id", scopeID.String()),
		zap.String("action", action),
		zap.Error(reason),
	)
	s.audit(ctx, actor, scope, scopeID, "authorization.denied", object, action, reason)
}

func (s *ServiceImpl) auditGranted(ctx context.Context, actor actorcontext.Actor, scope string, scopeID snowflake.ID, object string, action string) {
	s.audit(ctx, actor, scope, scopeID, "authorization.granted", object, action, nil)
}

func (s *ServiceImpl) audit(ctx context.Context, actor actorcontext.Actor, scope string, scopeID snowflake.ID, event string, object string, action string, reason error) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"object": object,
		"action": action,
		"role":   actor.Role,
	}
	if reason != nil {
		metadata["reason"] = reason.Error()
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		CompanyID:  actor.CompanyID,
		ActorType:  string(actor.Type),
		ActorID:    actor.UserID,
		Action:     event,
		TargetType: scope,
		TargetID:   scopeID.String(),
		Metadata:   metadata,
	})
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionVerificationReplace:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Technicians record verifications on their terminals.
		{"role:technician", ObjectVerification, ActionVerificationView},
		{"role:technician", ObjectVerification, ActionVerificationCreate},

		// Supervisors also correct and replace them.
		{"role:supervisor", ObjectVerification, ActionVerificationView},
		{"role:supervisor", ObjectVerification, ActionVerificationCreate},
		{"role:supervisor", ObjectVerification, ActionVerificationUpdate},
		{"role:supervisor", ObjectVerification, ActionVerificationReplace},
		{"role:supervisor", ObjectAuditLog, ActionAuditLogView},

		{"role:auditor", ObjectVerification, ActionVerificationView},
		{"role:auditor", ObjectAuditLog, ActionAuditLogView},

		{"role:admin", ObjectVerification, ActionVerificationView},
		{"role:admin", ObjectVerification, ActionVerificationCreate},
		{"role:admin", ObjectVerification, ActionVerificationUpdate},
		{"role:admin", ObjectVerification, ActionVerificationReplace},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},

		{"role:system", ObjectVerification, ActionVerificationView},
		{"role:system", ObjectVerification, ActionVerificationCreate},
		{"role:system", ObjectVerification, ActionVerificationUpdate},
		{"role:system", ObjectVerification, ActionVerificationReplace},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
