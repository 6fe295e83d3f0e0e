package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultEndpoint is the public Piston execute endpoint.
const DefaultEndpoint = "https://emkc.org/api/v2/piston/execute"

const maxResponseBytes = 8 << 20

type pistonFile struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language       string       `json:"language"`
	Version        string       `json:"version"`
	Files          []pistonFile `json:"files"`
	RunTimeout     int64        `json:"run_timeout,omitempty"`
	RunMemoryLimit int64        `json:"run_memory_limit,omitempty"`
}

type pistonStage struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Output string `json:"output"`
	Code   *int   `json:"code"`
	Signal string `json:"signal"`
}

type pistonResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Compile  *pistonStage `json:"compile"`
	Run      *pistonStage `json:"run"`
	Message  string       `json:"message"`
}

// PistonConfig configures the Piston client.
type PistonConfig struct {
	Endpoint string
	// Timeout bounds one HTTP round trip. Zero leaves the call unbounded and
	// cancellation to the caller's context.
	Timeout  time.Duration
	Runtimes RuntimeTable
	Client   *http.Client
}

// PistonClient dispatches sources to a Piston compatible backend.
type PistonClient struct {
	endpoint string
	runtimes RuntimeTable
	client   *http.Client
}

// NewPistonClient creates a new client.
func NewPistonClient(cfg PistonConfig) *PistonClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	runtimes := cfg.Runtimes
	if runtimes.Len() == 0 {
		runtimes = NewRuntimeTable(nil)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &PistonClient{endpoint: endpoint, runtimes: runtimes, client: client}
}

// Supports reports whether a runtime is pinned for the language.
func (c *PistonClient) Supports(lang model.Language) bool {
	_, ok := c.runtimes.Lookup(lang)
	return ok
}

// Dispatch performs exactly one execute call. Failures are reported in Result.Err.
func (c *PistonClient) Dispatch(ctx context.Context, req Request) Result {
	start := time.Now()
	res := c.dispatch(ctx, req)
	res.Duration = time.Since(start)

	fields := []zap.Field{
		zap.String("language", string(req.Language)),
		zap.Duration("duration", res.Duration),
		zap.Int("source_bytes", len(req.Source)),
	}
	if res.Err != nil {
		logger.Error(ctx, "execution dispatch failed", append(fields, zap.Error(res.Err))...)
	} else {
		logger.Debug(ctx, "execution dispatched", append(fields, zap.Bool("stderr", res.Stderr != ""))...)
	}
	return res
}

func (c *PistonClient) dispatch(ctx context.Context, req Request) Result {
	rt, ok := c.runtimes.Lookup(req.Language)
	if !ok {
		return Result{Err: appErr.ConfigError(appErr.LanguageNotSupported, "no runtime pinned for %s", req.Language)}
	}

	payload := pistonRequest{
		Language: rt.Language,
		Version:  rt.Version,
		Files:    []pistonFile{{Name: rt.FileName, Content: req.Source}},
	}
	if req.Limits.TimeLimitMs > 0 {
		payload.RunTimeout = req.Limits.TimeLimitMs
	}
	if req.Limits.MemoryLimitMB > 0 {
		payload.RunMemoryLimit = req.Limits.MemoryLimitMB << 20
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Err: appErr.Wrapf(err, appErr.ExecutionBackendError, "encode execute request failed")}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Err: appErr.Wrapf(err, appErr.ExecutionBackendError, "build execute request failed")}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{Err: appErr.Wrapf(err, appErr.ExecutionBackendError, "execute request failed")}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{Err: appErr.Wrapf(err, appErr.ExecutionBackendError, "read execute response failed")}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var decoded pistonResponse
		_ = json.Unmarshal(raw, &decoded)
		msg := decoded.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Result{Err: appErr.Newf(appErr.ExecutionBackendError, "execution backend returned %d: %s", resp.StatusCode, msg).
			WithDetail("status", resp.StatusCode)}
	}

	var decoded pistonResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{Err: appErr.Wrapf(err, appErr.ExecutionBackendError, "decode execute response failed")}
	}
	if decoded.Run == nil {
		if decoded.Compile != nil && compileFailure(decoded.Compile) != "" {
			return Result{Stderr: compileFailure(decoded.Compile)}
		}
		return Result{Err: appErr.New(appErr.ExecutionBackendError).WithMessage(fmt.Sprintf("execute response has no run stage: %s", decoded.Message))}
	}

	stderr := decoded.Run.Stderr
	if decoded.Compile != nil && decoded.Compile.Stderr != "" {
		stderr = decoded.Compile.Stderr + stderr
	}
	return Result{Stdout: decoded.Run.Stdout, Stderr: stderr}
}

func compileFailure(stage *pistonStage) string {
	if stage.Stderr != "" {
		return stage.Stderr
	}
	if stage.Code != nil && *stage.Code != 0 {
		if stage.Output != "" {
			return stage.Output
		}
		return fmt.Sprintf("compilation failed with exit code %d", *stage.Code)
	}
	return ""
}
