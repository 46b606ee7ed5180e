package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/debatetab/debatetab/cmd"
	"github.com/debatetab/debatetab/internal/buildinfo"
	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/logger"
)

// Set through -ldflags at build time.
var (
	version   = ""
	buildDate = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		return 1
	}

	centralLogger, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logging: %v\n", err)
		return 1
	}
	logger.SetGlobal(centralLogger)
	defer func() {
		_ = centralLogger.Close()
	}()
	log := centralLogger.Module("main")

	build := buildinfo.NewContext(version, buildDate)
	if settings.Telemetry.Enabled {
		if err := errors.InitSentry(settings.Telemetry.DSN, build.Release(settings.Main.Name)); err != nil {
			log.Warn("error telemetry disabled", logger.Error(err))
		}
		defer errors.FlushTelemetry(2 * time.Second)
	}

	rootCmd := cmd.RootCommand(settings, build)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error("command failed", logger.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
