package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"qpcrcli/internal/ddct"
	"qpcrcli/internal/infrastructure"
	"qpcrcli/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Checks    map[string]ServiceHealth `json:"checks,omitempty"`
}

// ServiceHealth represents the result of one readiness check
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(version, buildTime string, logger *slog.Logger) *HealthService {
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck runs the engine against a built-in plate and checks that
// temporary files can be created for workbook output.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Checks: map[string]ServiceHealth{
			"engine":   checkEngine(),
			"temp_dir": checkTempDir(),
		},
	}

	for name, check := range status.Checks {
		if check.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "Readiness check failed",
				slog.String("check", name),
				slog.String("message", check.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":     hs.version,
		"go_version":  runtime.Version(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"uptime":      time.Since(hs.startTime).Seconds(),
		"start_time":  hs.startTime.Format(time.RFC3339),
		"git_commit":  contracts.GitCommit,
		"data_format": contracts.DataFormatVersion,
		"api_version": contracts.APIVersion,
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// selfTestPlate uses the instrument layout (gene under Sample, biosample
// under Target). The treated GeneX well has a ΔΔCt of exactly 1.
var selfTestPlate = ddct.Table{
	Columns: []string{"Well", "Sample", "Target", "Cq"},
	Rows: [][]string{
		{"A1", "ACTB", "CTR-1", "15"},
		{"A2", "GeneX", "CTR-1", "20"},
		{"B1", "ACTB", "TRT-1", "15"},
		{"B2", "GeneX", "TRT-1", "21"},
	},
}

func checkEngine() ServiceHealth {
	opts := ddct.DefaultOptions()
	opts.ControlPattern = "^CTR"
	opts.ReferencePattern = "^ACTB$"
	opts.OutlierFilter = false

	res, err := ddct.Run(&selfTestPlate, opts)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("self test failed: %v", err)}
	}
	for _, w := range res.Wells {
		if w.Sample == "TRT-1" && w.Gene == "GeneX" && w.DeltaDeltaCt != 1 {
			return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("self test ΔΔCt = %g, want 1", w.DeltaDeltaCt)}
		}
	}
	return ServiceHealth{Status: "ready"}
}

func checkTempDir() ServiceHealth {
	f, err := os.CreateTemp("", ".ddct-ready-*")
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("cannot create temp file: %v", err)}
	}
	f.Close()
	os.Remove(f.Name())
	return ServiceHealth{Status: "ready"}
}
