package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/opd-ai/sockets/factory"
	"github.com/opd-ai/sockets/internal/demo"
	"github.com/sirupsen/logrus"
)

// CLI configuration
type CLIConfig struct {
	address        string
	port           uint
	simulation     bool
	simBufferSize  int
	overallTimeout time.Duration
	stepTimeout    time.Duration
	messageSize    int
	logLevel       string
	logFile        string
	verbose        bool
	help           bool
}

// parseCLIFlags parses command-line flags and returns the configuration.
func parseCLIFlags() *CLIConfig {
	config := &CLIConfig{}

	// Network configuration
	flag.StringVar(&config.address, "address", "127.0.0.1", "IP literal to bind listeners to")
	flag.UintVar(&config.port, "port", 0, "Listener port (0 picks an ephemeral port)")

	// Simulation
	flag.BoolVar(&config.simulation, "simulation", false, "Use the in-memory OS layer")
	flag.IntVar(&config.simBufferSize, "sim-buffer-size", factory.DefaultSimBufferSize, "Simulated stream buffer in bytes")

	// Timeout configuration
	flag.DurationVar(&config.overallTimeout, "overall-timeout", time.Minute, "Overall run timeout")
	flag.DurationVar(&config.stepTimeout, "step-timeout", 10*time.Second, "Per-step timeout")

	flag.IntVar(&config.messageSize, "message-size", 16*1024, "Echo payload size in bytes")

	// Logging configuration
	flag.StringVar(&config.logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	flag.StringVar(&config.logFile, "log-file", "", "Log file path (default: stdout)")
	flag.BoolVar(&config.verbose, "verbose", true, "Log the effective configuration")

	flag.BoolVar(&config.help, "help", false, "Show help message")

	flag.Parse()
	return config
}

// printUsage prints the usage information.
func printUsage() {
	fmt.Println("Socket State Machine Demo")
	fmt.Println("=========================")
	fmt.Println()
	fmt.Println("Walks sockets through their lifecycle:")
	fmt.Println("  • Echo over a listener and a dialed connection")
	fmt.Println("  • Connecting to the first reachable of several endpoints")
	fmt.Println("  • Handing a bound socket to a new owner")
	fmt.Println("  • Readiness multiplexing with Select")
	fmt.Println("  • Deferred close")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options]\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  # Run against the in-memory simulation\n")
	fmt.Printf("  %s -simulation\n", os.Args[0])
	fmt.Println()
	fmt.Printf("  # Run over IPv6 loopback\n")
	fmt.Printf("  %s -address ::1\n", os.Args[0])
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if config.port > 65535 {
		return fmt.Errorf("invalid port: must be between 0 and 65535")
	}

	if config.overallTimeout <= 0 {
		return fmt.Errorf("overall timeout must be positive")
	}

	if config.stepTimeout <= 0 {
		return fmt.Errorf("step timeout must be positive")
	}

	if config.stepTimeout > config.overallTimeout {
		return fmt.Errorf("step timeout cannot exceed overall timeout")
	}

	if config.messageSize <= 0 {
		return fmt.Errorf("message size must be positive")
	}

	return nil
}

// createDemoConfig converts CLI configuration to the demo configuration.
func createDemoConfig(cliConfig *CLIConfig) *demo.Config {
	return &demo.Config{
		Address:        cliConfig.address,
		Port:           uint16(cliConfig.port),
		Simulation:     cliConfig.simulation,
		SimBufferSize:  cliConfig.simBufferSize,
		OverallTimeout: cliConfig.overallTimeout,
		StepTimeout:    cliConfig.stepTimeout,
		MessageSize:    cliConfig.messageSize,
		LogLevel:       cliConfig.logLevel,
		LogFile:        cliConfig.logFile,
		VerboseOutput:  cliConfig.verbose,
	}
}

// setupSignalHandling cancels the run on interrupt.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	go func() {
		sig := <-sigChan
		logrus.WithField("signal", sig.String()).Warn("Interrupted, shutting down")
		cancel()
	}()
}

func main() {
	cliConfig := parseCLIFlags()

	if cliConfig.help {
		printUsage()
		os.Exit(0)
	}

	if err := validateCLIConfig(cliConfig); err != nil {
		logrus.WithFields(logrus.Fields{
			"error":   err.Error(),
			"context": "configuration_validation",
		}).Error("Configuration error, use -help for usage information")
		os.Exit(1)
	}

	orchestrator, err := demo.NewOrchestrator(createDemoConfig(cliConfig))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"error":   err.Error(),
			"context": "orchestrator_creation",
		}).Error("Failed to create demo orchestrator")
		os.Exit(1)
	}

	if err := orchestrator.ValidateConfiguration(); err != nil {
		logrus.WithFields(logrus.Fields{
			"error":   err.Error(),
			"context": "orchestrator_validation",
			"address": cliConfig.address,
		}).Error("Invalid configuration")
		orchestrator.Close()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	results, err := orchestrator.Run(ctx)

	exitCode := 0
	if err != nil || results.FinalStatus != demo.StatusPassed {
		exitCode = 1
	}

	fmt.Printf("\nSummary: %d steps, %d passed, %d failed (execution time: %v)\n",
		results.TotalSteps, results.PassedSteps, results.FailedSteps, results.ExecutionTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Demo failed: %v\n", err)
	}

	orchestrator.Close()
	os.Exit(exitCode)
}
