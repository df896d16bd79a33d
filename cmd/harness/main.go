package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/nomis52/goharness/artifacts"
	"github.com/nomis52/goharness/buildinfo"
	"github.com/nomis52/goharness/config"
	"github.com/nomis52/goharness/logging"
	"github.com/nomis52/goharness/metrics"
	"github.com/nomis52/goharness/server/runner"
	"github.com/nomis52/goharness/suites"
	_ "github.com/nomis52/goharness/suites/all"
)

type Args struct {
	ConfigPath  string
	Suites      []string
	ShowVersion bool
	Validate    bool
	List        bool
}

// configProvider satisfies runner.ConfigProvider with a fixed config.
type configProvider struct {
	cfg *config.Config
}

func (p configProvider) Config() *config.Config { return p.cfg }

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

	// Handle version request
	if args.ShowVersion {
		showVersion()
		return nil
	}

	if args.List {
		for _, name := range suites.Names() {
			fmt.Println(name)
		}
		return nil
	}

	// Validate required config path
	if args.ConfigPath == "" {
		return fmt.Errorf("config flag (-c or --config) is required")
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Handle validation-only request
	if args.Validate {
		fmt.Printf("Configuration validation successful: %s\n", args.ConfigPath)
		return nil
	}

	loggerConfig := logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.AddSource,
	}
	logger, err := logging.New(loggerConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	props := buildinfo.Get()
	logger.Info("goharness started",
		"build_time", props.BuildTime,
		"git_commit", props.GitCommit,
		"config_path", args.ConfigPath,
	)

	opts := []runner.Option{}

	// Push-based metrics for one-shot runs, if a push endpoint is configured
	if cfg.Monitoring.PushURL != "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		registry := metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.PushURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
		})
		opts = append(opts, runner.WithRegistry(registry))
	}

	// Artifact upload, if a bucket is configured
	if cfg.Artifacts.Bucket != "" {
		uploader, err := artifacts.NewS3Uploader(context.Background(), cfg.Artifacts, logger.Logger)
		if err != nil {
			return fmt.Errorf("failed to configure artifact uploads: %w", err)
		}
		opts = append(opts, runner.WithArtifacts(uploader))
	}

	r, err := runner.New(logger.Logger, configProvider{cfg: &cfg}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	names := args.Suites
	if len(names) == 0 {
		names = configuredSuites(cfg)
	}
	if len(names) == 0 {
		return fmt.Errorf("no suites configured; use -suites or add suites to the config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status, err := r.RunSync(ctx, names)
	if err != nil {
		return err
	}

	printResults(status)

	if status.Run.Error != "" {
		return fmt.Errorf("run failed: %s", status.Run.Error)
	}
	return nil
}

// configuredSuites returns the registered suites the config declares, in
// sorted order.
func configuredSuites(cfg config.Config) []string {
	names := make([]string, 0, len(cfg.Suites))
	for name := range cfg.Suites {
		if suites.Exists(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// printResults writes a human-readable run summary to stdout.
func printResults(status runner.RunStatus) {
	fmt.Printf("\nRun %s\n", status.Run.ID)

	for _, exec := range status.StepExecutions {
		line := fmt.Sprintf("  [%s] %s/%s", exec.State, exec.Suite, exec.Type)
		switch {
		case exec.Error != "":
			line += ": " + exec.Error
		case exec.Panic != "":
			line += ": " + exec.Panic
		case exec.Status != "":
			line += ": " + exec.Status
		}
		fmt.Println(line)
	}

	if status.Run.StartedAt != nil && status.Run.EndedAt != nil {
		duration := status.Run.EndedAt.Sub(*status.Run.StartedAt).Round(time.Millisecond)
		if status.Run.Error != "" {
			fmt.Printf("Result: FAILED after %s\n", duration)
		} else {
			fmt.Printf("Result: OK in %s\n", duration)
		}
	}
}

func showVersion() {
	props := buildinfo.Get()
	fmt.Printf("goharness\n")
	fmt.Printf("Built: %s\n", props.BuildTime)
	fmt.Printf("Commit: %s\n", props.GitCommit)
}

func parseArgs() Args {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	suiteList := flag.String("suites", "", "Comma-separated suites to run (default: all configured)")
	showVersion := flag.Bool("version", false, "Show version information")
	versionShort := flag.Bool("v", false, "Show version information (shorthand)")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	list := flag.Bool("list", false, "List available suites and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nDevice Test Harness\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --config /etc/goharness/config.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config config.yaml --suites device,web\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config config.yaml --validate\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}

	var names []string
	for _, name := range strings.Split(*suiteList, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	return Args{
		ConfigPath:  path,
		Suites:      names,
		ShowVersion: *showVersion || *versionShort,
		Validate:    *validate,
		List:        *list,
	}
}
