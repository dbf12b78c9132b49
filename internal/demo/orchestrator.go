package demo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opd-ai/sockets"
	"github.com/opd-ai/sockets/endpoint"
	"github.com/opd-ai/sockets/factory"
	"github.com/sirupsen/logrus"
)

// Config holds configuration for a demo run.
type Config struct {
	// Network configuration
	Address string
	Port    uint16

	// Simulation runs every step against the in-memory OS layer
	Simulation    bool
	SimBufferSize int

	// Timeout configuration
	OverallTimeout time.Duration
	StepTimeout    time.Duration

	// Echo payload size in bytes
	MessageSize int

	// Logging configuration
	LogLevel      string
	LogFile       string
	VerboseOutput bool
}

// DefaultConfig returns the default demo configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:        "127.0.0.1",
		Port:           0,
		Simulation:     false,
		SimBufferSize:  factory.DefaultSimBufferSize,
		OverallTimeout: time.Minute,
		StepTimeout:    10 * time.Second,
		MessageSize:    16 * 1024,
		LogLevel:       "INFO",
		VerboseOutput:  true,
	}
}

// Results holds the outcome of a demo run.
type Results struct {
	TotalSteps    int
	PassedSteps   int
	FailedSteps   int
	ExecutionTime time.Duration
	Steps         []StepResult
	FinalStatus   Status
	ErrorDetails  string
}

// StepResult is the outcome of one step.
type StepResult struct {
	StepName      string
	Status        Status
	ExecutionTime time.Duration
	ErrorMessage  string
}

// Status represents the status of a run or step.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusPassed
	StatusFailed
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusRunning:
		return "RUNNING"
	case StatusPassed:
		return "PASSED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Orchestrator runs the demo steps in order.
type Orchestrator struct {
	config  *Config
	logger  *logrus.Logger
	opts    *sockets.Options
	results *Results
	logFile *os.File
}

// NewOrchestrator creates an orchestrator. A nil config uses DefaultConfig.
func NewOrchestrator(config *Config) (*Orchestrator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.LogLevel, err)
	}
	logger.SetLevel(level)

	o := &Orchestrator{
		config: config,
		logger: logger,
		results: &Results{
			Steps:       make([]StepResult, 0),
			FinalStatus: StatusPending,
		},
	}

	if config.LogFile != "" {
		f, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f)
		o.logFile = f
	}

	o.opts = sockets.NewOptions()
	f := factory.NewSyscallFactory()
	if config.Simulation {
		o.opts.Syscalls = f.CreateSimulationForTesting(factory.WithSimBufferSize(config.SimBufferSize))
	} else {
		o.opts.Syscalls = f.CreateSyscalls()
	}
	return o, nil
}

// ValidateConfiguration checks the configuration before Run.
func (o *Orchestrator) ValidateConfiguration() error {
	if o.config.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if _, err := endpoint.Parse(o.config.Address); err != nil {
		return fmt.Errorf("address must be an IP literal: %w", err)
	}
	if o.config.OverallTimeout <= 0 {
		return fmt.Errorf("overall timeout must be positive")
	}
	if o.config.StepTimeout <= 0 {
		return fmt.Errorf("step timeout must be positive")
	}
	if o.config.MessageSize <= 0 {
		return fmt.Errorf("message size must be positive")
	}
	if o.config.Simulation &&
		(o.config.SimBufferSize < factory.MinSimBufferSize || o.config.SimBufferSize > factory.MaxSimBufferSize) {
		return fmt.Errorf("simulation buffer size must be between %d and %d",
			factory.MinSimBufferSize, factory.MaxSimBufferSize)
	}
	return nil
}

// Close releases the log file, if any.
func (o *Orchestrator) Close() error {
	if o.logFile != nil {
		return o.logFile.Close()
	}
	return nil
}

// Run executes every step and returns the results. The error is the first
// step failure.
func (o *Orchestrator) Run(ctx context.Context) (*Results, error) {
	start := time.Now()
	o.results.FinalStatus = StatusRunning

	o.logger.Info("Socket state machine demo")
	if o.config.VerboseOutput {
		o.logConfiguration()
	}

	runCtx, cancel := context.WithTimeout(ctx, o.config.OverallTimeout)
	defer cancel()

	var runErr error
	for _, step := range o.steps() {
		if err := o.executeStep(runCtx, step.name, step.run); err != nil {
			runErr = err
			break
		}
	}

	o.results.ExecutionTime = time.Since(start)
	o.results.TotalSteps = len(o.results.Steps)
	if runErr != nil {
		o.results.FinalStatus = StatusFailed
		o.results.ErrorDetails = runErr.Error()
	} else {
		o.results.FinalStatus = StatusPassed
	}

	o.logReport()
	return o.results, runErr
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{"Echo over loopback", o.echoStep},
		{"Connect to first reachable candidate", o.connectAnyStep},
		{"Hand off a bound socket", o.handoffStep},
		{"Select readiness", o.selectStep},
		{"Deferred close", o.deferredCloseStep},
	}
}

// executeStep runs one step under StepTimeout and records the result.
func (o *Orchestrator) executeStep(ctx context.Context, name string, run func(ctx context.Context) error) error {
	stepStart := time.Now()
	o.logger.WithField("step", name).Info("Executing step")

	stepCtx, cancel := context.WithTimeout(ctx, o.config.StepTimeout)
	defer cancel()

	result := StepResult{StepName: name, Status: StatusRunning}
	err := run(stepCtx)
	result.ExecutionTime = time.Since(stepStart)

	if err != nil {
		result.Status = StatusFailed
		result.ErrorMessage = err.Error()
		o.results.FailedSteps++
		o.logger.WithFields(logrus.Fields{
			"step":  name,
			"error": err.Error(),
		}).Error("Step failed")
	} else {
		result.Status = StatusPassed
		o.results.PassedSteps++
		o.logger.WithFields(logrus.Fields{
			"step":     name,
			"duration": result.ExecutionTime.String(),
		}).Info("Step passed")
	}

	o.results.Steps = append(o.results.Steps, result)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (o *Orchestrator) logConfiguration() {
	o.logger.WithFields(logrus.Fields{
		"address":         o.config.Address,
		"port":            o.config.Port,
		"simulation":      o.config.Simulation,
		"overall_timeout": o.config.OverallTimeout.String(),
		"step_timeout":    o.config.StepTimeout.String(),
		"message_size":    o.config.MessageSize,
	}).Info("Demo configuration")
}

func (o *Orchestrator) logReport() {
	o.logger.WithFields(logrus.Fields{
		"status":   o.results.FinalStatus.String(),
		"steps":    o.results.TotalSteps,
		"passed":   o.results.PassedSteps,
		"failed":   o.results.FailedSteps,
		"duration": o.results.ExecutionTime.String(),
	}).Info("Demo finished")

	for _, s := range o.results.Steps {
		entry := o.logger.WithFields(logrus.Fields{
			"step":     s.StepName,
			"status":   s.Status.String(),
			"duration": s.ExecutionTime.String(),
		})
		if s.ErrorMessage != "" {
			entry = entry.WithField("error", s.ErrorMessage)
		}
		entry.Info("Step result")
	}
}
