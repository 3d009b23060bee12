package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/metrolab/internal/audit/domain"
	"github.com/smallbiznis/metrolab/pkg/db/pagination"
)

// auditLogQuery accepts from/to as aliases of start_at/end_at and
// verification_id as a shortcut for a verification target.
type auditLogQuery struct {
	PageToken      string `form:"page_token"`
	PageSize       int    `form:"page_size"`
	Action         string `form:"action"`
	ActorType      string `form:"actor_type"`
	TargetType     string `form:"target_type"`
	TargetID       string `form:"target_id"`
	VerificationID string `form:"verification_id"`
	StartAt        string `form:"start_at"`
	From           string `form:"from"`
	EndAt          string `form:"end_at"`
	To             string `form:"to"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var q auditLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	loc := s.cfg.Location()
	startAt, err := parseOptionalTime(firstNonEmpty(q.StartAt, q.From), loc, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "start_at must be RFC3339 or YYYY-MM-DD"))
		return
	}
	endAt, err := parseOptionalTime(firstNonEmpty(q.EndAt, q.To), loc, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "end_at must be RFC3339 or YYYY-MM-DD"))
		return
	}

	req := auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(q.PageToken),
			PageSize:  q.PageSize,
		},
		Action:     strings.TrimSpace(q.Action),
		ActorType:  strings.TrimSpace(q.ActorType),
		TargetType: strings.TrimSpace(q.TargetType),
		TargetID:   strings.TrimSpace(q.TargetID),
		StartAt:    startAt,
		EndAt:      endAt,
	}
	if id := strings.TrimSpace(q.VerificationID); id != "" {
		req.TargetType, req.TargetID = "verification", id
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}
