package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
)

func newBackend(t *testing.T, handler func(w http.ResponseWriter, req pistonRequest)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var req pistonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request failed: %v", err)
		}
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestDispatchSendsPinnedRuntime(t *testing.T) {
	tests := []struct {
		lang     model.Language
		language string
		version  string
		fileName string
	}{
		{model.LangJavaScript, "javascript", "18.15.0", ""},
		{model.LangPython, "python", "3.10.0", ""},
		{model.LangCPP, "cpp", "10.2.0", ""},
		{model.LangJava, "java", "15.0.2", "Main.java"},
	}
	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			var got pistonRequest
			srv, calls := newBackend(t, func(w http.ResponseWriter, req pistonRequest) {
				got = req
				_, _ = w.Write([]byte(`{"run":{"stdout":"ok\n","stderr":""}}`))
			})
			client := NewPistonClient(PistonConfig{Endpoint: srv.URL})
			res := client.Dispatch(context.Background(), Request{Language: tt.lang, Source: "src"})
			if res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if *calls != 1 {
				t.Fatalf("expected one call, got %d", *calls)
			}
			if got.Language != tt.language || got.Version != tt.version {
				t.Fatalf("unexpected runtime %s %s", got.Language, got.Version)
			}
			if len(got.Files) != 1 || got.Files[0].Name != tt.fileName || got.Files[0].Content != "src" {
				t.Fatalf("unexpected files %+v", got.Files)
			}
			if got.RunTimeout != 0 || got.RunMemoryLimit != 0 {
				t.Fatalf("limits should be omitted, got %+v", got)
			}
			if res.Stdout != "ok\n" {
				t.Fatalf("unexpected stdout %q", res.Stdout)
			}
		})
	}
}

func TestDispatchPassesLimits(t *testing.T) {
	var got pistonRequest
	srv, _ := newBackend(t, func(w http.ResponseWriter, req pistonRequest) {
		got = req
		_, _ = w.Write([]byte(`{"run":{"stdout":"","stderr":""}}`))
	})
	client := NewPistonClient(PistonConfig{Endpoint: srv.URL})
	client.Dispatch(context.Background(), Request{
		Language: model.LangPython,
		Source:   "print(1)",
		Limits:   Limits{TimeLimitMs: 2000, MemoryLimitMB: 128},
	})
	if got.RunTimeout != 2000 {
		t.Fatalf("unexpected run_timeout %d", got.RunTimeout)
	}
	if got.RunMemoryLimit != 128<<20 {
		t.Fatalf("unexpected run_memory_limit %d", got.RunMemoryLimit)
	}
}

func TestDispatchFoldsCompileStderr(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, req pistonRequest) {
		_, _ = w.Write([]byte(`{"compile":{"stderr":"warning: x\n"},"run":{"stdout":"1\n","stderr":""}}`))
	})
	res := NewPistonClient(PistonConfig{Endpoint: srv.URL}).Dispatch(context.Background(), Request{Language: model.LangCPP})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Stderr != "warning: x\n" {
		t.Fatalf("unexpected stderr %q", res.Stderr)
	}
}

func TestDispatchCompileFailureWithoutRun(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, req pistonRequest) {
		_, _ = w.Write([]byte(`{"compile":{"stderr":"","output":"Main.java:1: error","code":1}}`))
	})
	res := NewPistonClient(PistonConfig{Endpoint: srv.URL}).Dispatch(context.Background(), Request{Language: model.LangJava})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Stderr != "Main.java:1: error" {
		t.Fatalf("unexpected stderr %q", res.Stderr)
	}
}

func TestDispatchTransportFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "non 2xx", status: http.StatusTooManyRequests, payload: `{"message":"rate limited"}`},
		{name: "malformed body", status: http.StatusOK, payload: `{"run":`},
		{name: "missing run", status: http.StatusOK, payload: `{"language":"python"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := newBackend(t, func(w http.ResponseWriter, req pistonRequest) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			})
			res := NewPistonClient(PistonConfig{Endpoint: srv.URL}).Dispatch(context.Background(), Request{Language: model.LangPython})
			if !appErr.Is(res.Err, appErr.ExecutionBackendError) {
				t.Fatalf("expected ExecutionBackendError, got %v", res.Err)
			}
			if *calls != 1 {
				t.Fatalf("expected a single attempt, got %d", *calls)
			}
		})
	}
}

func TestDispatchUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	res := NewPistonClient(PistonConfig{Endpoint: endpoint}).Dispatch(context.Background(), Request{Language: model.LangJavaScript})
	if !appErr.Is(res.Err, appErr.ExecutionBackendError) {
		t.Fatalf("expected ExecutionBackendError, got %v", res.Err)
	}
}

func TestRuntimeTableOverrides(t *testing.T) {
	table := NewRuntimeTable(map[string]Runtime{
		"Python": {Version: "3.12.0"},
		"go":     {Version: "1.16.2"},
		"java":   {Language: "java"},
	})
	py, ok := table.Lookup(model.LangPython)
	if !ok || py.Version != "3.12.0" || py.Language != "python" {
		t.Fatalf("unexpected python runtime %+v", py)
	}
	goRt, ok := table.Lookup("go")
	if !ok || goRt.Language != "go" {
		t.Fatalf("unexpected go runtime %+v", goRt)
	}
	java, _ := table.Lookup(model.LangJava)
	if java.Version != "15.0.2" || java.FileName != "Main.java" {
		t.Fatalf("override without version must be ignored, got %+v", java)
	}

	client := NewPistonClient(PistonConfig{Runtimes: table})
	if !client.Supports("go") || client.Supports("ruby") {
		t.Fatalf("unexpected support set")
	}
}

func TestDispatchWithoutTimeoutWaitsForSlowBackend(t *testing.T) {
	srv, _ := newBackend(t, func(w http.ResponseWriter, req pistonRequest) {
		time.Sleep(150 * time.Millisecond)
		_, _ = w.Write([]byte(`{"run":{"stdout":"ok\n","stderr":"","code":0}}`))
	})
	client := NewPistonClient(PistonConfig{Endpoint: srv.URL})
	if client.client.Timeout != 0 {
		t.Fatalf("zero config must leave the client unbounded, got %s", client.client.Timeout)
	}
	res := client.Dispatch(context.Background(), Request{Language: model.LangPython, Source: "print('ok')"})
	if res.Err != nil {
		t.Fatalf("slow backend must not be a transport failure: %v", res.Err)
	}
	if res.Stdout != "ok\n" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
}
