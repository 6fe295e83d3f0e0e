package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codearena/internal/auth"
	pkgerrors "codearena/pkg/errors"
	"codearena/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
)

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id"`
}

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(ctx context.Context, raw string) (auth.Identity, error) {
	if raw == "good" {
		return auth.Identity{UserID: 42, Role: "user"}, nil
	}
	return auth.Identity{}, pkgerrors.New(pkgerrors.TokenInvalid)
}

func perform(router http.Handler, path string, headers map[string]string) (*httptest.ResponseRecorder, apiResponse) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(rec, req)
	var resp apiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestTraceContextMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TraceContextMiddleware())
	router.GET("/trace", func(c *gin.Context) {
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"trace":   ctx.Value(contextkey.TraceID),
			"request": ctx.Value(contextkey.RequestID),
		})
	})

	cases := []struct {
		name      string
		headers   map[string]string
		wantTrace string
	}{
		{name: "generated"},
		{name: "preserved", headers: map[string]string{"X-Trace-Id": "trace-123", "X-Request-Id": "req-1"}, wantTrace: "trace-123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := perform(router, "/trace", tc.headers)
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			traceID := rec.Header().Get("X-Trace-Id")
			if traceID == "" || body["trace"] != traceID {
				t.Fatalf("trace id mismatch: header %q body %q", traceID, body["trace"])
			}
			if rec.Header().Get("X-Request-Id") == "" || body["request"] != rec.Header().Get("X-Request-Id") {
				t.Fatalf("request id mismatch")
			}
			if tc.wantTrace != "" && traceID != tc.wantTrace {
				t.Fatalf("expected trace %q, got %q", tc.wantTrace, traceID)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TraceContextMiddleware())
	router.GET("/me", AuthMiddleware(stubAuthenticator{}), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		if c.Request.Context().Value(contextkey.UserID) != id {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 10000, "message": "ok"})
	})
	router.GET("/nil", AuthMiddleware(nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantCode   int
	}{
		{"missing token", "/me", "", http.StatusUnauthorized, int(pkgerrors.TokenInvalid)},
		{"wrong scheme", "/me", "Basic good", http.StatusUnauthorized, int(pkgerrors.TokenInvalid)},
		{"bad token", "/me", "Bearer bad", http.StatusUnauthorized, int(pkgerrors.TokenInvalid)},
		{"valid token", "/me", "Bearer good", http.StatusOK, 10000},
		{"no authenticator", "/nil", "Bearer good", http.StatusServiceUnavailable, int(pkgerrors.ServiceUnavailable)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			rec, resp := perform(router, tc.path, headers)
			if rec.Code != tc.wantStatus {
				t.Fatalf("unexpected status %d", rec.Code)
			}
			if resp.Code != tc.wantCode {
				t.Fatalf("unexpected code %d", resp.Code)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TraceContextMiddleware(), AccessLogMiddleware(), RecoveryMiddleware())
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec, resp := perform(router, "/panic", nil)
	if rec.Code != http.StatusInternalServerError || resp.Code != int(pkgerrors.InternalServerError) {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
	if resp.TraceID == "" {
		t.Fatalf("error envelope should carry the trace id")
	}
}
