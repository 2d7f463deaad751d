package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	publicationdomain "github.com/smallbiznis/pressline/internal/publication/domain"
)

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) ListCategories(c *gin.Context) {
	categories, err := s.publicationSvc.ListCategories(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (s *Server) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	category, err := s.publicationSvc.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": category})
}

func (s *Server) ListPublications(c *gin.Context) {
	onlyAvailable := false
	if raw := strings.TrimSpace(c.Query("available")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, newValidationError("available", "invalid_available", "available must be a boolean"))
			return
		}
		onlyAvailable = parsed
	}

	publications, err := s.publicationSvc.List(c.Request.Context(), onlyAvailable)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": publications})
}

func (s *Server) CreatePublication(c *gin.Context) {
	var req publicationdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	publication, err := s.publicationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": publication})
}

func (s *Server) GetPublication(c *gin.Context) {
	publication, err := s.publicationSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": publication})
}

type setAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

func (s *Server) SetPublicationAvailability(c *gin.Context) {
	var req setAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.IsAvailable == nil {
		AbortWithError(c, newValidationError("is_available", "required", "is_available is required"))
		return
	}

	id := c.Param("id")
	if err := s.publicationSvc.SetAvailability(c.Request.Context(), id, *req.IsAvailable); err != nil {
		AbortWithError(c, err)
		return
	}

	publication, err := s.publicationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": publication})
}

// QuotePublication prices a prospective subscription:
// GET /v1/publications/:id/quote?months=3&service_ids=1,2
func (s *Server) QuotePublication(c *gin.Context) {
	months, err := strconv.Atoi(strings.TrimSpace(c.Query("months")))
	if err != nil {
		AbortWithError(c, newValidationError("months", "invalid_period", "months must be a positive integer"))
		return
	}

	quote, err := s.publicationSvc.Quote(c.Request.Context(), publicationdomain.QuoteRequest{
		PublicationID: c.Param("id"),
		PeriodMonths:  months,
		ServiceIDs:    serviceIDsFromQuery(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

func (s *Server) ListAdditionalServices(c *gin.Context) {
	services, err := s.publicationSvc.ListServices(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": services})
}

func (s *Server) CreateAdditionalService(c *gin.Context) {
	var req publicationdomain.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	service, err := s.publicationSvc.CreateService(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": service})
}

// serviceIDsFromQuery accepts repeated or comma separated service_ids.
func serviceIDsFromQuery(c *gin.Context) []string {
	var ids []string
	for _, raw := range c.QueryArray("service_ids") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
