package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestIntervalTriggerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  IntervalTriggerConfig
		wantErr bool
	}{
		{"valid", IntervalTriggerConfig{Name: "sweep", Interval: time.Minute}, false},
		{"missing name", IntervalTriggerConfig{Interval: time.Minute}, true},
		{"zero interval", IntervalTriggerConfig{Name: "sweep"}, true},
		{"negative timeout", IntervalTriggerConfig{Name: "sweep", Interval: time.Minute, Timeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewIntervalTrigger_RequiresJob(t *testing.T) {
	_, err := NewIntervalTrigger(IntervalTriggerConfig{Name: "sweep", Interval: time.Minute}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestIntervalTrigger_RunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	trigger, err := NewIntervalTrigger(
		IntervalTriggerConfig{Name: "test", Interval: 10 * time.Millisecond},
		func(context.Context) error {
			runs.Add(1)
			return nil
		},
		newTestLogger(),
	)
	require.NoError(t, err)

	require.NoError(t, trigger.Start(context.Background()))
	assert.True(t, trigger.IsRunning())

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, trigger.Stop(context.Background()))
	assert.False(t, trigger.IsRunning())

	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load(), "no runs after Stop")
}

func TestIntervalTrigger_RunOnStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	trigger, err := NewIntervalTrigger(
		IntervalTriggerConfig{Name: "test", Interval: time.Hour, RunOnStart: true},
		func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, trigger.Start(context.Background()))
	defer func() { _ = trigger.Stop(context.Background()) }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}
}

func TestIntervalTrigger_RecordsErrorsAndPanics(t *testing.T) {
	var calls atomic.Int32
	jobErr := errors.New("database unavailable")
	trigger, err := NewIntervalTrigger(
		IntervalTriggerConfig{Name: "test", Interval: 10 * time.Millisecond, RunOnStart: true},
		func(context.Context) error {
			if calls.Add(1) == 1 {
				return jobErr
			}
			panic("boom")
		},
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, trigger.Start(context.Background()))

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))

	last, lastErr := trigger.LastRun()
	assert.False(t, last.IsZero())
	assert.ErrorIs(t, lastErr, ErrJobPanicked)
}

func TestIntervalTrigger_StartStopIdempotent(t *testing.T) {
	trigger, err := NewIntervalTrigger(
		IntervalTriggerConfig{Name: "test", Interval: time.Hour},
		func(context.Context) error { return nil },
		nil,
	)
	require.NoError(t, err)

	assert.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))
	assert.NoError(t, trigger.Stop(context.Background()))
	assert.NoError(t, trigger.Stop(context.Background()))
}
