package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	deliverydomain "github.com/smallbiznis/pressline/internal/delivery/domain"
)

func (s *Server) UpdateDeliveryStatus(c *gin.Context) {
	var req deliverydomain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.DeliveryID = c.Param("id")

	delivery, err := s.deliverySvc.UpdateStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": delivery})
}
