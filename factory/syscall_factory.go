package factory

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/opd-ai/sockets/interfaces"
	"github.com/opd-ai/sockets/limits"
	"github.com/opd-ai/sockets/real"
	"github.com/opd-ai/sockets/testing"
	"github.com/sirupsen/logrus"
)

// Validation constants for configuration bounds checking.
const (
	// MinSimBufferSize is the smallest simulated stream buffer in bytes.
	MinSimBufferSize = 1
	// MaxSimBufferSize is the largest simulated stream buffer in bytes (16 MiB).
	MaxSimBufferSize = 16 << 20
	// DefaultSimBufferSize matches a typical loopback socket buffer.
	DefaultSimBufferSize = 64 << 10
)

// SyscallFactory creates syscall implementations based on configuration.
// It is safe for concurrent use; all methods are protected by an internal mutex.
type SyscallFactory struct {
	mu            sync.RWMutex
	defaultConfig *interfaces.SyscallConfig
}

// TestConfigOption is a functional option for customizing test simulation configuration.
type TestConfigOption func(*interfaces.SyscallConfig)

// NewSyscallFactory creates a new factory with default configuration
func NewSyscallFactory() *SyscallFactory {
	defaultConfig := createDefaultConfig()
	applyEnvironmentOverrides(defaultConfig)
	logConfigurationInfo(defaultConfig)

	return &SyscallFactory{
		defaultConfig: defaultConfig,
	}
}

// createDefaultConfig initializes the default syscall configuration.
//
// Default Value Rationale:
//   - UseSimulation: false - real sockets unless simulation is explicitly enabled
//   - SimBufferSize: 64 KiB
//   - DefaultBacklog: limits.DefaultBacklog
func createDefaultConfig() *interfaces.SyscallConfig {
	return &interfaces.SyscallConfig{
		UseSimulation:  false,
		SimBufferSize:  DefaultSimBufferSize,
		DefaultBacklog: limits.DefaultBacklog,
	}
}

// applyEnvironmentOverrides updates configuration based on SOCKETS_* environment variables.
func applyEnvironmentOverrides(config *interfaces.SyscallConfig) {
	parseSimulationSetting(config)
	parseBufferSizeSetting(config)
	parseBacklogSetting(config)
}

// parseSimulationSetting updates UseSimulation from SOCKETS_USE_SIMULATION.
func parseSimulationSetting(config *interfaces.SyscallConfig) {
	if useSimStr := os.Getenv("SOCKETS_USE_SIMULATION"); useSimStr != "" {
		useSim, err := strconv.ParseBool(useSimStr)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseSimulationSetting",
				"env_var":     "SOCKETS_USE_SIMULATION",
				"value":       useSimStr,
				"error":       err.Error(),
				"using_value": config.UseSimulation,
			}).Warn("Failed to parse SOCKETS_USE_SIMULATION environment variable, using default")
			return
		}
		config.UseSimulation = useSim
	}
}

// parseIntSetting reads an integer environment variable within [min, max].
func parseIntSetting(function, envVar string, min, max, current int) (int, bool) {
	str := os.Getenv(envVar)
	if str == "" {
		return current, false
	}
	value, err := strconv.Atoi(str)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    function,
			"env_var":     envVar,
			"value":       str,
			"error":       err.Error(),
			"using_value": current,
		}).Warn("Failed to parse environment variable, using default")
		return current, false
	}
	if value < min || value > max {
		logrus.WithFields(logrus.Fields{
			"function":    function,
			"env_var":     envVar,
			"value":       value,
			"min":         min,
			"max":         max,
			"using_value": current,
		}).Warn("Environment variable out of bounds, using default")
		return current, false
	}
	return value, true
}

// parseBufferSizeSetting updates SimBufferSize from SOCKETS_SIM_BUFFER_SIZE.
func parseBufferSizeSetting(config *interfaces.SyscallConfig) {
	if v, ok := parseIntSetting("parseBufferSizeSetting", "SOCKETS_SIM_BUFFER_SIZE",
		MinSimBufferSize, MaxSimBufferSize, config.SimBufferSize); ok {
		config.SimBufferSize = v
	}
}

// parseBacklogSetting updates DefaultBacklog from SOCKETS_DEFAULT_BACKLOG.
func parseBacklogSetting(config *interfaces.SyscallConfig) {
	if v, ok := parseIntSetting("parseBacklogSetting", "SOCKETS_DEFAULT_BACKLOG",
		limits.MinBacklog, limits.MaxBacklog, config.DefaultBacklog); ok {
		config.DefaultBacklog = v
	}
}

// logConfigurationInfo logs the final configuration settings for debugging purposes.
func logConfigurationInfo(config *interfaces.SyscallConfig) {
	logrus.WithFields(logrus.Fields{
		"function":        "NewSyscallFactory",
		"use_simulation":  config.UseSimulation,
		"sim_buffer_size": config.SimBufferSize,
		"default_backlog": config.DefaultBacklog,
	}).Info("Created syscall factory with configuration")
}

// CreateSyscalls creates a syscall implementation based on the default configuration
func (f *SyscallFactory) CreateSyscalls() interfaces.SocketSyscalls {
	sys, _ := f.CreateSyscallsWithConfig(nil)
	return sys
}

// CreateSyscallsWithConfig creates a syscall implementation with custom configuration.
// A nil config uses the factory default.
func (f *SyscallFactory) CreateSyscallsWithConfig(config *interfaces.SyscallConfig) (interfaces.SocketSyscalls, error) {
	if config == nil {
		config = f.GetCurrentConfig()
	} else if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid syscall config: %w", err)
	}

	if config.UseSimulation {
		logrus.WithFields(logrus.Fields{
			"function": "CreateSyscallsWithConfig",
			"type":     "simulation",
		}).Info("Creating simulation syscall implementation")

		return testing.NewSimulatedSyscalls(config), nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "CreateSyscallsWithConfig",
		"type":     "real",
	}).Info("Creating real syscall implementation")

	return real.NewSyscalls(config), nil
}

// WithSimBufferSize sets the simulated stream buffer size for the test configuration.
func WithSimBufferSize(size int) TestConfigOption {
	return func(c *interfaces.SyscallConfig) {
		c.SimBufferSize = size
	}
}

// WithDefaultBacklog sets the default backlog for the test configuration.
func WithDefaultBacklog(backlog int) TestConfigOption {
	return func(c *interfaces.SyscallConfig) {
		c.DefaultBacklog = backlog
	}
}

// CreateSimulationForTesting creates a simulation implementation specifically for testing.
// Default test configuration uses SimBufferSize=4096 and DefaultBacklog=16.
func (f *SyscallFactory) CreateSimulationForTesting(opts ...TestConfigOption) *testing.SimulatedSyscalls {
	testConfig := &interfaces.SyscallConfig{
		UseSimulation:  true,
		SimBufferSize:  4096,
		DefaultBacklog: 16,
	}

	for _, opt := range opts {
		opt(testConfig)
	}

	logrus.WithFields(logrus.Fields{
		"function":        "CreateSimulationForTesting",
		"sim_buffer_size": testConfig.SimBufferSize,
		"default_backlog": testConfig.DefaultBacklog,
	}).Info("Creating simulation implementation for testing")

	return testing.NewSimulatedSyscalls(testConfig)
}

// SwitchToSimulation switches the configuration to use simulation
func (f *SyscallFactory) SwitchToSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SwitchToSimulation",
		"previous": f.defaultConfig.UseSimulation,
	}).Info("Switching factory to simulation mode")

	f.defaultConfig.UseSimulation = true
}

// SwitchToReal switches the configuration to use the real implementation
func (f *SyscallFactory) SwitchToReal() {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SwitchToReal",
		"previous": f.defaultConfig.UseSimulation,
	}).Info("Switching factory to real mode")

	f.defaultConfig.UseSimulation = false
}

// GetCurrentConfig returns a copy of the current default configuration
func (f *SyscallFactory) GetCurrentConfig() *interfaces.SyscallConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	configCopy := *f.defaultConfig
	return &configCopy
}

// IsUsingSimulation returns true if the factory is configured for simulation
func (f *SyscallFactory) IsUsingSimulation() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.defaultConfig.UseSimulation
}

// UpdateConfig validates and replaces the factory's default configuration
func (f *SyscallFactory) UpdateConfig(config *interfaces.SyscallConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid syscall config: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "UpdateConfig",
		"old_simulation": f.defaultConfig.UseSimulation,
		"new_simulation": config.UseSimulation,
		"old_backlog":    f.defaultConfig.DefaultBacklog,
		"new_backlog":    config.DefaultBacklog,
	}).Info("Updating factory configuration")

	configCopy := *config
	f.defaultConfig = &configCopy
	return nil
}
