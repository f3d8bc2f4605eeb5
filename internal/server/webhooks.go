package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/numeratel/numera/internal/razorpay"
	webhookdomain "github.com/numeratel/numera/internal/webhook/domain"
)

// HandleWebhook receives provider deliveries. Business failures during
// reconciliation still return 200 so the provider stops retrying; only
// signature, tenant, and payload problems surface as HTTP errors.
func (s *Server) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.webhookSvc.Ingest(c.Request.Context(), webhookdomain.IngestRequest{
		TenantID:  strings.TrimSpace(c.Param("tenantId")),
		Signature: c.GetHeader(razorpay.SignatureHeader),
		Body:      body,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": result.Success,
		"message": result.Message,
		"data":    result,
	})
}

func (s *Server) HandleWebhookURL(c *gin.Context) {
	url, err := s.webhookSvc.WebhookURL(c.Param("resellerId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"webhook_url": url,
	})
}
