package controller

import (
	"context"
	"strings"

	"codearena/internal/common/http/middleware"
	"codearena/internal/judge/model"
	"codearena/internal/submit/repository"
	"codearena/internal/submit/service"
	pkgerrors "codearena/pkg/errors"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmissionService is the behaviour the handlers need from the submit service.
type SubmissionService interface {
	Run(ctx context.Context, input service.RunInput) (model.Outcome, error)
	Submit(ctx context.Context, input service.SubmitInput) (service.SubmitResult, error)
	ListSubmissions(ctx context.Context, userID int64, slug string) ([]*repository.Submission, error)
	GetComposedSource(ctx context.Context, userID int64, submissionID string) (string, error)
}

// SubmitController handles submission HTTP endpoints.
type SubmitController struct {
	submitService SubmissionService
}

// NewSubmitController creates a new SubmitController.
func NewSubmitController(submitService SubmissionService) *SubmitController {
	return &SubmitController{submitService: submitService}
}

// Register mounts the routes. Run is public; the rest require auth.
func (h *SubmitController) Register(group *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	submissions := group.Group("/submissions")
	submissions.POST("/run", h.Run)
	submissions.POST("/submit", authMiddleware, h.Submit)
	submissions.GET("", authMiddleware, h.List)
	submissions.GET("/:id/composed", authMiddleware, h.GetComposed)
}

// Run judges code without saving it.
func (h *SubmitController) Run(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	outcome, err := h.submitService.Run(c.Request.Context(), service.RunInput{
		Language: req.Language,
		Code:     req.Code,
		Slug:     req.Slug,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, outcome)
}

// Submit judges and records a submission for the caller.
func (h *SubmitController) Submit(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	result, err := h.submitService.Submit(c.Request.Context(), service.SubmitInput{
		Language: req.Language,
		Code:     req.Code,
		Slug:     req.Slug,
		UserID:   userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// List returns the caller's submissions for ?slug=, newest first.
func (h *SubmitController) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}
	slug := strings.TrimSpace(c.Query("slug"))
	if slug == "" {
		response.Error(c, pkgerrors.ValidationError("slug", "required"))
		return
	}
	submissions, err := h.submitService.ListSubmissions(c.Request.Context(), userID, slug)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]SubmissionItem, 0, len(submissions))
	for _, s := range submissions {
		items = append(items, SubmissionItem{
			SubmissionID: s.SubmissionID,
			Language:     s.Language,
			Code:         s.Code,
			Status:       s.Status,
			RuntimeMs:    s.RuntimeMs,
			CreatedAt:    s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	response.Success(c, items)
}

// GetComposed returns the archived source unit dispatched for a submission.
func (h *SubmitController) GetComposed(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}
	submissionID := strings.TrimSpace(c.Param("id"))
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	source, err := h.submitService.GetComposedSource(c.Request.Context(), userID, submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ComposedSourceResponse{SubmissionID: submissionID, Source: source})
}

// CodeRequest is the payload for run and submit.
type CodeRequest struct {
	Language string `json:"language" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Slug     string `json:"slug" binding:"required"`
}

// SubmissionItem is one entry of the submission history.
type SubmissionItem struct {
	SubmissionID string `json:"submissionId"`
	Language     string `json:"language"`
	Code         string `json:"code"`
	Status       string `json:"status"`
	RuntimeMs    int64  `json:"runtimeMs"`
	CreatedAt    string `json:"createdAt"`
}

// ComposedSourceResponse carries an archived source unit.
type ComposedSourceResponse struct {
	SubmissionID string `json:"submissionId"`
	Source       string `json:"source"`
}
