package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	leasedomain "github.com/smallbiznis/rentflow/internal/lease/domain"
	obslogger "github.com/smallbiznis/rentflow/internal/observability/logger"
	"go.uber.org/zap"
)

type markSignedResponse struct {
	Success    bool                    `json:"success"`
	Status     leasedomain.LeaseStatus `json:"status"`
	Message    string                  `json:"message"`
	Signatures []leasedomain.Signature `json:"signatures"`
}

// MarkLeaseSigned is called by the e-signature webhook relay. Its error
// bodies are flat {error, details} objects rather than errorResponse.
func (s *Server) MarkLeaseSigned(c *gin.Context) {
	var req leasedomain.MarkSignedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	result, err := s.leaseSvc.MarkSigned(c.Request.Context(), req)
	if err != nil {
		s.writeMarkSignedError(c, err)
		return
	}

	signatures := result.Signatures
	if signatures == nil {
		signatures = []leasedomain.Signature{}
	}
	c.JSON(http.StatusOK, markSignedResponse{
		Success:    true,
		Status:     result.Status,
		Message:    result.Message,
		Signatures: signatures,
	})
}

func (s *Server) writeMarkSignedError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, leasedomain.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
	case errors.Is(err, leasedomain.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid userType"})
	case errors.Is(err, leasedomain.ErrLeaseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lease not found"})
	case errors.Is(err, leasedomain.ErrSignatureNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Signature not found"})
	case errors.Is(err, leasedomain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Lease cannot be signed in its current status", "details": err.Error()})
	default:
		obslogger.WithContext(c.Request.Context(), s.log).Error("lease.mark_signed.failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to mark lease as signed",
			"details": err.Error(),
		})
	}
}
