package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressline/internal/clock"
	subscriptiondomain "github.com/smallbiznis/pressline/internal/subscription/domain"
)

type createSubscriptionRequest struct {
	ClientID         string          `json:"client_id"`
	PublicationID    string          `json:"publication_id"`
	PeriodMonths     int             `json:"period_months"`
	PlannedStartDate string          `json:"planned_start_date"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	ServiceIDs       []string        `json:"service_ids"`
	Metadata         map[string]any  `json:"metadata"`
}

type updateSubscriptionRequest struct {
	PeriodMonths     *int             `json:"period_months"`
	PlannedStartDate *string          `json:"planned_start_date"`
	TotalPrice       *decimal.Decimal `json:"total_price"`
	ServiceIDs       *[]string        `json:"service_ids"`
}

// parseDate accepts a civil date or an RFC 3339 timestamp and truncates it
// to the date.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return clock.Date(t), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return clock.Date(t), true
	}
	return time.Time{}, false
}

// ListSubscriptions filters by client_id or view (active, awaiting_payment).
func (s *Server) ListSubscriptions(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		subs []subscriptiondomain.Subscription
		err  error
	)
	clientID := strings.TrimSpace(c.Query("client_id"))
	view := strings.TrimSpace(c.Query("view"))
	switch {
	case clientID != "":
		subs, err = s.subscriptionSvc.ListByClient(ctx, clientID)
	case view == "active":
		subs, err = s.subscriptionSvc.ListActive(ctx)
	case view == "awaiting_payment":
		subs, err = s.subscriptionSvc.ListAwaitingPayment(ctx)
	default:
		AbortWithError(c, newValidationError("view", "invalid_view", "client_id or view=active|awaiting_payment is required"))
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subs})
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, ok := parseDate(req.PlannedStartDate)
	if !ok {
		AbortWithError(c, newValidationError("planned_start_date", "invalid_start_date", "planned_start_date must be YYYY-MM-DD"))
		return
	}

	sub, err := s.subscriptionSvc.CreateSubscription(c.Request.Context(), subscriptiondomain.CreateRequest{
		ClientID:         req.ClientID,
		PublicationID:    req.PublicationID,
		PeriodMonths:     req.PeriodMonths,
		PlannedStartDate: start,
		TotalPrice:       req.TotalPrice,
		ServiceIDs:       req.ServiceIDs,
		Metadata:         req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": sub})
}

func (s *Server) GetSubscription(c *gin.Context) {
	sub, err := s.subscriptionSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) UpdateSubscription(c *gin.Context) {
	var req updateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := subscriptiondomain.UpdateRequest{
		SubscriptionID: c.Param("id"),
		PeriodMonths:   req.PeriodMonths,
		TotalPrice:     req.TotalPrice,
		ServiceIDs:     req.ServiceIDs,
	}
	if req.PlannedStartDate != nil {
		start, ok := parseDate(*req.PlannedStartDate)
		if !ok {
			AbortWithError(c, newValidationError("planned_start_date", "invalid_start_date", "planned_start_date must be YYYY-MM-DD"))
			return
		}
		update.PlannedStartDate = &start
	}

	sub, err := s.subscriptionSvc.UpdateSubscription(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) ActivateSubscription(c *gin.Context) {
	sub, err := s.subscriptionSvc.ActivateSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) CancelOverduePayments(c *gin.Context) {
	cancelled, err := s.subscriptionSvc.CancelOverduePayments(c.Request.Context())
	if err != nil && cancelled == 0 {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"cancelled": cancelled}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDeliveries(c *gin.Context) {
	deliveries, err := s.subscriptionSvc.ListDeliveries(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": deliveries})
}

func (s *Server) ListSubscriptionServices(c *gin.Context) {
	services, err := s.subscriptionSvc.ListServices(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": services})
}
