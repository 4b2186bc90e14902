package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
	"github.com/smallbiznis/opsalert/internal/detection"
	"go.uber.org/zap"
)

// GenerateAlerts runs a detection pass. Its response shape is a fixed
// contract with the dashboards and does not go through ErrorHandlingMiddleware.
func (s *Server) GenerateAlerts(c *gin.Context) {
	result, err := s.detection.Run(c.Request.Context())
	if err != nil {
		s.log.Error("alert generation failed",
			zap.String("pass_id", result.PassID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate alerts",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"generated": result.Persisted})
}

func (s *Server) MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}

func (s *Server) ListAlerts(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil || (limit != nil && *limit <= 0) {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
		return
	}

	req := alertdomain.ListRequest{}
	if limit != nil {
		req.Limit = *limit
	}
	resp, err := s.alertSvc.ListOpen(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPlanner(c *gin.Context) {
	resp, err := s.alertSvc.Plan(c.Request.Context(), alertdomain.PlanRequest{})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) UpdateAlertStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.alertSvc.UpdateStatus(c.Request.Context(), alertdomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type draftResponse struct {
	Deployment  string         `json:"deployment"`
	Kind        string         `json:"kind"`
	Severity    string         `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	Metadata    map[string]any `json:"metadata"`
}

func toDraftResponses(drafts []alertdomain.Draft) []draftResponse {
	out := make([]draftResponse, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, draftResponse{
			Deployment:  string(d.Deployment),
			Kind:        string(d.Kind),
			Severity:    string(d.Severity),
			Title:       d.Title,
			Description: d.Description,
			SubjectType: string(d.SubjectType),
			SubjectID:   d.SubjectID,
			Metadata:    d.Metadata.JSONMap(),
		})
	}
	return out
}

// GetBrief previews what a detection pass would raise right now without
// persisting anything.
func (s *Server) GetBrief(c *gin.Context) {
	result, err := s.detection.Preview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     toDraftResponses(result.Drafts),
		"failed":   result.Failed,
		"failures": nonNilFailures(result.Failures),
	})
}

func (s *Server) GetLeaseBrief(c *gin.Context) {
	drafts, err := s.detection.LeaseBrief(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toDraftResponses(drafts)})
}

func nonNilFailures(in []detection.Failure) []detection.Failure {
	if in == nil {
		return []detection.Failure{}
	}
	return in
}
