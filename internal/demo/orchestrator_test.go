package demo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/sockets/factory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusPending, "PENDING"},
		{StatusRunning, "RUNNING"},
		{StatusPassed, "PASSED"},
		{StatusFailed, "FAILED"},
		{Status(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NotNil(t, config)

	assert.Equal(t, "127.0.0.1", config.Address)
	assert.Equal(t, uint16(0), config.Port)
	assert.False(t, config.Simulation)
	assert.Equal(t, factory.DefaultSimBufferSize, config.SimBufferSize)
	assert.Equal(t, time.Minute, config.OverallTimeout)
	assert.Equal(t, 10*time.Second, config.StepTimeout)
	assert.Equal(t, 16*1024, config.MessageSize)
	assert.Equal(t, "INFO", config.LogLevel)
	assert.True(t, config.VerboseOutput)
}

func TestNewOrchestratorNilConfig(t *testing.T) {
	o, err := NewOrchestrator(nil)
	require.NoError(t, err)
	defer o.Close()

	assert.Equal(t, DefaultConfig(), o.config)
	assert.Equal(t, StatusPending, o.results.FinalStatus)
}

func TestNewOrchestratorInvalidLogLevel(t *testing.T) {
	config := DefaultConfig()
	config.LogLevel = "LOUD"

	_, err := NewOrchestrator(config)
	assert.Error(t, err)
}

func TestNewOrchestratorLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.log")
	config := DefaultConfig()
	config.LogFile = path
	config.Simulation = true

	o, err := NewOrchestrator(config)
	require.NoError(t, err)
	o.logger.Info("written to file")
	require.NoError(t, o.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestRunSimulation(t *testing.T) {
	config := DefaultConfig()
	config.Simulation = true
	config.LogLevel = "ERROR"
	config.VerboseOutput = false

	o, err := NewOrchestrator(config)
	require.NoError(t, err)
	defer o.Close()

	results, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, results.FinalStatus)
	assert.Equal(t, len(o.steps()), results.TotalSteps)
	assert.Equal(t, results.TotalSteps, results.PassedSteps)
	assert.Zero(t, results.FailedSteps)
	assert.Empty(t, results.ErrorDetails)
	for _, step := range results.Steps {
		assert.Equal(t, StatusPassed, step.Status, step.StepName)
	}
}

func TestRunLoopback(t *testing.T) {
	if testing.Short() {
		t.Skip("uses real loopback sockets")
	}

	config := DefaultConfig()
	config.LogLevel = "ERROR"
	config.MessageSize = 4096

	o, err := NewOrchestrator(config)
	require.NoError(t, err)
	defer o.Close()

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, results.FinalStatus)
}

func TestExecuteStepRecordsFailure(t *testing.T) {
	config := DefaultConfig()
	config.Simulation = true
	config.LogLevel = "ERROR"

	o, err := NewOrchestrator(config)
	require.NoError(t, err)
	defer o.Close()

	stepErr := errors.New("boom")
	err = o.executeStep(context.Background(), "failing", func(context.Context) error {
		return stepErr
	})
	require.ErrorIs(t, err, stepErr)
	assert.Contains(t, err.Error(), "failing")

	require.NoError(t, o.executeStep(context.Background(), "passing", func(context.Context) error {
		return nil
	}))

	require.Len(t, o.results.Steps, 2)
	assert.Equal(t, StatusFailed, o.results.Steps[0].Status)
	assert.Equal(t, "boom", o.results.Steps[0].ErrorMessage)
	assert.Equal(t, StatusPassed, o.results.Steps[1].Status)
	assert.Equal(t, 1, o.results.FailedSteps)
	assert.Equal(t, 1, o.results.PassedSteps)
}

func TestExecuteStepTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Simulation = true
	config.LogLevel = "ERROR"
	config.StepTimeout = 10 * time.Millisecond

	o, err := NewOrchestrator(config)
	require.NoError(t, err)
	defer o.Close()

	err = o.executeStep(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"ipv6 loopback", func(c *Config) { c.Address = "::1" }, false},
		{"host name", func(c *Config) { c.Address = "localhost" }, true},
		{"empty address", func(c *Config) { c.Address = "" }, true},
		{"zero overall timeout", func(c *Config) { c.OverallTimeout = 0 }, true},
		{"zero step timeout", func(c *Config) { c.StepTimeout = 0 }, true},
		{"zero message size", func(c *Config) { c.MessageSize = 0 }, true},
		{"bad sim buffer", func(c *Config) {
			c.Simulation = true
			c.SimBufferSize = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.LogLevel = "ERROR"
			tt.mutate(config)

			o, err := NewOrchestrator(config)
			require.NoError(t, err)
			defer o.Close()

			err = o.ValidateConfiguration()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
