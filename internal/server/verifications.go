package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	verificationdomain "github.com/smallbiznis/metrolab/internal/verification/domain"
)

func (s *Server) CreateVerification(c *gin.Context) {
	replace, err := parseOptionalBool(c.Query("replace_existing"))
	if err != nil {
		AbortWithError(c, newValidationError("replace_existing", "invalid_replace_existing", "invalid replace_existing"))
		return
	}

	var payload verificationdomain.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := verificationdomain.CreateRequest{
		EquipmentID: strings.TrimSpace(c.Param("id")),
		Payload:     payload,
	}
	if replace != nil {
		req.ReplaceExisting = *replace
	}

	resp, err := s.verificationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateVerification(c *gin.Context) {
	var payload verificationdomain.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.verificationSvc.Update(c.Request.Context(), verificationdomain.UpdateRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		Payload: payload,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListVerifications(c *gin.Context) {
	var req verificationdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.EquipmentID = strings.TrimSpace(c.Param("id"))
	req.VerificationTypeID = strings.TrimSpace(req.VerificationTypeID)
	req.PageToken = strings.TrimSpace(req.PageToken)

	resp, err := s.verificationSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Items, "page_info": resp.PageInfo})
}

func (s *Server) GetVerification(c *gin.Context) {
	resp, err := s.verificationSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
