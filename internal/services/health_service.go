package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"fermcli/internal/config"
	"fermcli/pkg/contracts"
	api "fermcli/pkg/contracts/api/v1"
)

// HealthService provides health check functionality
type HealthService struct {
	paths         *config.Paths
	sheetsEnabled bool
	startTime     time.Time
	logger        *slog.Logger
}

// NewHealthService creates a new health service
func NewHealthService(paths *config.Paths, sheetsEnabled bool, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		paths:         paths,
		sheetsEnabled: sheetsEnabled,
		startTime:     time.Now(),
		logger:        logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck reports "ok", or "degraded" when the output directory is unusable.
func (hs *HealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	status := api.HealthResponse{
		Status:    "ok",
		Version:   contracts.Version,
		Uptime:    time.Since(hs.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{},
	}

	if err := hs.checkOutputDir(); err != nil {
		status.Status = "degraded"
		status.Checks["output_dir"] = err.Error()
		hs.logger.WarnContext(ctx, "health check degraded", slog.String("error", err.Error()))
	} else {
		status.Checks["output_dir"] = "ok"
	}

	if hs.sheetsEnabled {
		status.Checks["sheets"] = "enabled"
	} else {
		status.Checks["sheets"] = "disabled"
	}
	return status
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

// checkOutputDir verifies the output directory exists and is a directory.
// A missing directory is fine as long as its parent exists.
func (hs *HealthService) checkOutputDir() error {
	if hs.paths == nil {
		return fmt.Errorf("paths not configured")
	}
	info, err := os.Stat(hs.paths.OutputDir)
	switch {
	case os.IsNotExist(err):
		if _, perr := os.Stat(hs.paths.BaseDir); perr != nil {
			return fmt.Errorf("base directory unavailable: %w", perr)
		}
		return nil
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("output path %s is not a directory", hs.paths.OutputDir)
	}
	return nil
}
