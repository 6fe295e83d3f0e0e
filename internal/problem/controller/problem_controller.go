package controller

import (
	"context"

	"codearena/internal/common/http/middleware"
	"codearena/internal/problem/service"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemService is the behaviour the handlers need from the problem service.
type ProblemService interface {
	GetProblem(ctx context.Context, slug string) (service.ProblemView, error)
	ListSolved(ctx context.Context, userID int64) ([]int64, error)
}

// ProblemController handles problem HTTP endpoints.
type ProblemController struct {
	problemService ProblemService
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problemService ProblemService) *ProblemController {
	return &ProblemController{problemService: problemService}
}

// Register mounts the routes.
func (h *ProblemController) Register(group *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	group.GET("/problems/:slug", h.Get)
	group.GET("/users/me/solved", authMiddleware, h.ListSolved)
}

// Get returns the public view of a problem.
func (h *ProblemController) Get(c *gin.Context) {
	view, err := h.problemService.GetProblem(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// ListSolved returns the caller's solved problem ids.
func (h *ProblemController) ListSolved(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "")
		return
	}
	ids, err := h.problemService.ListSolved(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SolvedResponse{ProblemIDs: ids})
}

// SolvedResponse lists solved problem ids.
type SolvedResponse struct {
	ProblemIDs []int64 `json:"problemIds"`
}
