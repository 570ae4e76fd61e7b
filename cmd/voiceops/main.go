package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/drewdunne/voiceops/internal/audit"
	"github.com/drewdunne/voiceops/internal/config"
	"github.com/drewdunne/voiceops/internal/logging"
	"github.com/joho/godotenv"
)

var version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "run":
		runCommand(os.Args[2:])
	case "version":
		fmt.Printf("voiceops v%s\n", version)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: voiceops <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the HTTP API")
	fmt.Println("  run      Process one command, e.g. voiceops run -user developer \"build my feature branch\"")
	fmt.Println("  version  Print version information")
}

// commonFlags registers the flags shared by every subcommand.
func commonFlags(flags *flag.FlagSet) (configPath, envFile *string) {
	configPath = flags.String("config", "config.yaml", "Path to config file")
	envFile = flags.String("env-file", "", "Path to .env file (optional)")
	return configPath, envFile
}

// setup loads the environment and config and builds the logger. A missing
// config file at the default path falls back to defaults.
func setup(configPath, envFile string, explicitConfig bool) (*config.Config, *slog.Logger) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load env file %s: %v\n", envFile, err)
		}
	} else {
		// Try default locations
		godotenv.Load(".env")
		godotenv.Load("/etc/voiceops/voiceops.env")
	}

	cfg, err := config.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) && !explicitConfig {
		cfg = config.DefaultConfig()
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)
	return cfg, logger
}

func flagSet(flags *flag.FlagSet, name string) bool {
	set := false
	flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func runServe(args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath, envFile := commonFlags(flags)
	flags.Parse(args)

	cfg, logger := setup(*configPath, *envFile, flagSet(flags, "config"))

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	cleanup := audit.NewCleanupScheduler(
		audit.NewCleaner(a.store, cfg.Audit.RetentionDays),
		cfg.Audit.CleanupInterval,
		logger,
	)
	cleanup.Start()

	srv := a.server()
	srv.OnShutdown(cleanup.Stop)
	srv.OnShutdown(a.supervisor.Shutdown)

	err = srv.ListenAndServeWithShutdown()
	cleanup.Stop()
	a.close()
	if err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runCommand(args []string) {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	configPath, envFile := commonFlags(flags)
	user := flags.String("user", "developer", "Username issuing the command")
	flags.Parse(args)

	text := strings.Join(flags.Args(), " ")
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: voiceops run [-user name] <command text>")
		os.Exit(1)
	}

	cfg, logger := setup(*configPath, *envFile, flagSet(flags, "config"))

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	res := a.processor.Process(ctx, text, *user)
	a.close()

	fmt.Println(res.Message)
	if !res.Success {
		os.Exit(1)
	}
}
