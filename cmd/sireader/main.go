// Command sireader drives one SPORTident master station, decoding cards as
// they are punched and validating each one against a configured course set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"

	"github.com/sireader/core/config"
	"github.com/sireader/core/course"
	"github.com/sireader/core/portio"
	"github.com/sireader/core/protocol"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath      = pflag.StringP("config-file", "c", "", "Configuration file name (YAML). Required unless --list is given.")
		device          = pflag.StringP("device", "d", "", "Serial device path, overriding the config file's station.device.")
		list            = pflag.BoolP("list", "l", false, "List candidate serial devices (Linux only) and exit.")
		verbose         = pflag.BoolP("verbose", "v", false, "Log sent/received frames in addition to status and card events.")
		timestampFormat = pflag.String("timestamp-format", "", "strftime pattern for the startup banner timestamp, e.g. %Y-%m-%d %H:%M:%S.")
		csvLogPath      = pflag.String("csv-log", "", "Append one CSV row per card read to this file, creating it (with a header) if needed.")
	)
	pflag.Parse()

	logger := charmlog.New(os.Stderr)
	if *verbose {
		logger.SetLevel(charmlog.DebugLevel)
	}

	if *list {
		return runList(logger)
	}

	if *timestampFormat != "" {
		if err := printBanner(logger, *timestampFormat); err != nil {
			logger.Error("invalid timestamp format", "err", err)
			return 1
		}
	}

	if *configPath == "" {
		logger.Error("--config-file is required (or pass --list to discover devices)")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		return 1
	}

	if *device != "" {
		cfg.Station.Device = *device
	}

	return runDriver(logger, cfg, *csvLogPath)
}

func runList(logger *charmlog.Logger) int {
	devices, err := portio.Discover()
	if err != nil {
		logger.Error("device discovery failed", "err", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Println("No SPORTident master stations found.")
		return 0
	}
	for _, d := range devices {
		fmt.Printf("%s  (vendor=%s product=%s)\n", d.DevicePath, d.VendorID, d.ProductID)
	}
	return 0
}

func printBanner(logger *charmlog.Logger, pattern string) error {
	f, err := strftime.New(pattern)
	if err != nil {
		return fmt.Errorf("parse timestamp format: %w", err)
	}
	logger.Info("starting sireader", "time", f.FormatString(time.Now()))
	return nil
}

func runDriver(logger *charmlog.Logger, cfg config.Config, csvLogPath string) int {
	port, err := portio.Open(cfg.Station.Device, cfg.Station.InitialBaud)
	if err != nil {
		logger.Error("failed to open serial port", "device", cfg.Station.Device, "err", err)
		return 1
	}

	zeroHour, err := cfg.ZeroHourMillis(time.Now())
	if err != nil {
		logger.Error("invalid zero_hour", "err", err)
		return 1
	}

	var base protocol.Sink = protocol.NewLogSink(logger)
	if csvLogPath != "" {
		csvSink, err := newCSVLogSink(csvLogPath)
		if err != nil {
			logger.Error("failed to open csv log", "err", err)
			return 1
		}
		defer csvSink.Close() //nolint:errcheck
		base = teeSink{targets: []protocol.Sink{base, csvSink}}
	}

	courses := cfg.CourseSet()
	sink := newValidatingSink(base, logger, courses)

	driver := protocol.NewDriver(port, sink, protocol.WithZeroHour(zeroHour))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go port.ReadLoop(ctx, driver.HandleSerialData) //nolint:errcheck

	driverErr := driver.Start(ctx)

	if ctx.Err() != nil {
		driver.Stop()
		return 0
	}

	if driverErr != nil {
		logger.Error("driver exited", "err", driverErr)
		return 1
	}
	return 0
}

// validatingSink wraps another Sink, additionally auto-detecting the best
// matching course for every card read and logging the validation result.
type validatingSink struct {
	protocol.Sink
	courses []course.Course
	logger  *charmlog.Logger
}

func newValidatingSink(base protocol.Sink, logger *charmlog.Logger, courses []course.Course) *validatingSink {
	return &validatingSink{Sink: base, courses: courses, logger: logger}
}
