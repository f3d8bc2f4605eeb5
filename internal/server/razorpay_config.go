package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tenantdomain "github.com/numeratel/numera/internal/tenantconfig/domain"
)

func (s *Server) HandleUpsertConfig(c *gin.Context) {
	var req tenantdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cfg, err := s.tenantConfigSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"tenant_id":       cfg.TenantID,
			"provider_key_id": cfg.ProviderKeyID,
			"is_active":       cfg.IsActive,
			"updated_at":      cfg.UpdatedAt,
		},
	})
}

func (s *Server) HandleGetConfig(c *gin.Context) {
	view, err := s.tenantConfigSvc.GetView(c.Request.Context(), c.Param("resellerId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    view,
	})
}
