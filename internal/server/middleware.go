package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/metrolab/internal/actorcontext"
)

// Identity is asserted by the gateway in front of the service.
const (
	HeaderUserID      = "X-User-Id"
	HeaderUserRole    = "X-User-Role"
	HeaderCompanyID   = "X-Company-Id"
	HeaderTerminalIDs = "X-Terminal-Ids"
)

// IdentityRequired resolves the actor from the gateway headers and stores it
// on the request context.
func (s *Server) IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := actorcontext.Actor{
			Type:   actorcontext.ActorTypeUser,
			UserID: userID,
			Role:   strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))),
		}

		if raw := strings.TrimSpace(c.GetHeader(HeaderCompanyID)); raw != "" {
			companyID, err := snowflake.ParseString(raw)
			if err != nil || companyID == 0 {
				AbortWithError(c, newValidationError("company_id", "invalid_company_id", "invalid company id header"))
				return
			}
			actor.CompanyID = companyID
		}

		terminalIDs, all, err := actorcontext.ParseTerminalIDs(c.GetHeader(HeaderTerminalIDs))
		if err != nil {
			AbortWithError(c, newValidationError("terminal_ids", "invalid_terminal_ids", "invalid terminal ids header"))
			return
		}
		actor.TerminalIDs = terminalIDs
		actor.AllTerminals = all

		c.Request = c.Request.WithContext(actorcontext.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole rejects actors whose asserted role is not listed.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorcontext.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if strings.EqualFold(actor.Role, role) {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

func (s *Server) authorizeCompanyAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authzSvc == nil || !s.cfg.Authz.Enabled {
			c.Next()
			return
		}
		actor, ok := actorcontext.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.AuthorizeCompany(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
