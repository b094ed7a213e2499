package telemetry

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/infrastructure/config"
)

// Profiler pushes continuous profiles to a Pyroscope server.
type Profiler struct {
	mu       sync.Mutex
	profiler *pyroscope.Profiler
}

// NewProfiler starts profiling when telemetry.profiling_enabled is set.
// Goroutine and allocation profiles are collected alongside CPU because
// the reconciliation consumer and the multipart intake are the hot paths.
func NewProfiler(cfg config.TelemetryConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{}
	if !cfg.ProfilingEnabled {
		return p, nil
	}
	switch {
	case cfg.ProfilerAddress == "":
		return nil, errors.New("telemetry.profiler_address is required when profiling is enabled")
	case cfg.ServiceName == "":
		return nil, errors.New("telemetry.service_name is required when profiling is enabled")
	}

	tags := map[string]string{"version": Version}
	if hostname, err := os.Hostname(); err == nil {
		tags["hostname"] = hostname
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.ProfilerAddress,
		Logger:          logger.Named("pyroscope").Sugar(),
		Tags:            tags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start profiler: %w", err)
	}
	p.profiler = profiler
	logger.Info("Profiling enabled", zap.String("server_address", cfg.ProfilerAddress))
	return p, nil
}

// Stop flushes pending profiles. Later calls are no-ops.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.profiler == nil {
		return nil
	}
	err := p.profiler.Stop()
	p.profiler = nil
	return err
}

func (p *Profiler) IsEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profiler != nil
}
