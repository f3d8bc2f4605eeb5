package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	txdomain "github.com/numeratel/numera/internal/transaction/domain"
)

func (s *Server) HandleListTransactions(c *gin.Context) {
	filter := txdomain.Filter{}

	if v := c.Query("reseller_id"); !isUnsetFilter(v) {
		filter.TenantID = strings.TrimSpace(v)
	}
	if v := c.Query("status"); !isUnsetFilter(v) {
		filter.Status = txdomain.Status(strings.ToLower(strings.TrimSpace(v)))
	}

	start, err := parseOptionalTime(c.Query("start_date"), false)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	end, err := parseOptionalTime(c.Query("end_date"), true)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	filter.StartDate = start
	filter.EndDate = end

	if filter.Limit, err = parseOptionalInt(c.Query("limit")); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if filter.Offset, err = parseOptionalInt(c.Query("offset")); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.transactionSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": result.Rows,
		"summary":      result.Summary,
	})
}

func (s *Server) HandleTransactionStats(c *gin.Context) {
	stats, err := s.transactionSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}
