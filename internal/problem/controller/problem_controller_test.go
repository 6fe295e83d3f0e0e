package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codearena/internal/auth"
	"codearena/internal/common/http/middleware"
	"codearena/internal/problem/service"
	pkgerrors "codearena/pkg/errors"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

type stubService struct {
	solvedFor int64
}

func (s *stubService) GetProblem(ctx context.Context, slug string) (service.ProblemView, error) {
	if slug != "two-sum" {
		return service.ProblemView{}, pkgerrors.New(pkgerrors.ProblemNotFound)
	}
	return service.ProblemView{Slug: "two-sum", Title: "Two Sum", Languages: []string{"python"}}, nil
}

func (s *stubService) ListSolved(ctx context.Context, userID int64) ([]int64, error) {
	s.solvedFor = userID
	return []int64{4, 9}, nil
}

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(ctx context.Context, raw string) (auth.Identity, error) {
	if raw == "token-7" {
		return auth.Identity{UserID: 7}, nil
	}
	return auth.Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
}

func serve(t *testing.T, svc *stubService, path, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewProblemController(svc).Register(router.Group("/api/v1"), middleware.AuthMiddleware(stubAuthenticator{}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope failed: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func TestGetProblem(t *testing.T) {
	rec, env := serve(t, &stubService{}, "/api/v1/problems/two-sum", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var view service.ProblemView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view failed: %v", err)
	}
	if view.Title != "Two Sum" || len(view.Languages) != 1 {
		t.Fatalf("unexpected view %+v", view)
	}

	rec, env = serve(t, &stubService{}, "/api/v1/problems/missing", "")
	if rec.Code != http.StatusNotFound || env.Code != int(pkgerrors.ProblemNotFound) {
		t.Fatalf("unexpected response %d %+v", rec.Code, env)
	}
}

func TestListSolvedRequiresAuth(t *testing.T) {
	rec, env := serve(t, &stubService{}, "/api/v1/users/me/solved", "")
	if rec.Code != http.StatusUnauthorized || env.Code == int(pkgerrors.Success) {
		t.Fatalf("expected unauthorized, got %d %+v", rec.Code, env)
	}

	svc := &stubService{}
	rec, env = serve(t, svc, "/api/v1/users/me/solved", "token-7")
	if rec.Code != http.StatusOK || svc.solvedFor != 7 {
		t.Fatalf("unexpected response %d for user %d", rec.Code, svc.solvedFor)
	}
	var resp SolvedResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode solved failed: %v", err)
	}
	if len(resp.ProblemIDs) != 2 || resp.ProblemIDs[0] != 4 {
		t.Fatalf("unexpected ids %v", resp.ProblemIDs)
	}
}
