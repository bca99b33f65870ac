package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/services/admission"
)

// rejectStatus maps an admission rejection to the HTTP status the upstream
// source translates into its own bounce or retry behavior.
func rejectStatus(reason enum.RejectReason) int {
	switch reason {
	case enum.RejectReasonInvalidRecipient:
		return http.StatusNotFound
	case enum.RejectReasonSenderNotWhitelisted:
		return http.StatusForbidden
	case enum.RejectReasonSizeExceeded:
		return http.StatusRequestEntityTooLarge
	case enum.RejectReasonQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondRejected(c *gin.Context, decision admission.Decision) {
	c.JSON(rejectStatus(decision.Reason), gin.H{
		"error":   string(decision.Reason),
		"message": decision.Detail,
	})
}
