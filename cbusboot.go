package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/cbusboot/cbusboot-go/internal/adapter"
	"github.com/cbusboot/cbusboot-go/internal/adapter/ftdi"
	"github.com/cbusboot/cbusboot-go/internal/config"
	"github.com/cbusboot/cbusboot-go/internal/core"
	"github.com/cbusboot/cbusboot-go/internal/flasher"
	"github.com/cbusboot/cbusboot-go/internal/locate"
	"github.com/cbusboot/cbusboot-go/internal/logs"
	"github.com/cbusboot/cbusboot-go/internal/server"
	"github.com/cbusboot/cbusboot-go/internal/session"
)

const version = "1.0.0"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	options, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if options.versionFlag {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	stderrWriter, stderrLogger, shortMemoryWriter, longMemoryWriter := initLoggers(options.logfile, options.verbose)
	logger := logs.New(longMemoryWriter)
	logger.Log("cbusboot " + version + " is starting")

	cfg, err := config.Load(options.config)
	if err != nil {
		stderrLogger.Printf("config: %s", err)
		return exitUsage
	}
	if options.port != "" {
		cfg.Locator.Strategy = locate.StrategyFixed
		cfg.Locator.Port = options.port
	}

	c, err := build(cfg, stdout, logger)
	if err != nil {
		stderrLogger.Printf("config: %s", err)
		return exitUsage
	}

	switch options.mode {
	case modeServe:
		return serve(c, cfg, stderrWriter, stderrLogger, shortMemoryWriter, longMemoryWriter)
	case modeLocate:
		location, err := c.Locate()
		if err != nil {
			return fail(stderrLogger, err)
		}
		fmt.Fprintln(stdout, location)
	case modeEnter:
		if err := c.Enter(); err != nil {
			return fail(stderrLogger, err)
		}
		stderrLogger.Print("target is in its bootloader")
	case modeExit:
		if err := c.Exit(); err != nil {
			return fail(stderrLogger, err)
		}
		stderrLogger.Print("target is running")
	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		location, err := c.Flash(ctx, options.firmware)
		if err != nil {
			return fail(stderrLogger, err)
		}
		stderrLogger.Printf("flashed %s over %s", options.firmware, location)
	}
	return exitOK
}

// build wires the adapter driver, the bootloader session, the locator and the
// programmer into a core.
func build(cfg *config.Config, programmerOutput io.Writer, logger *logs.Logger) (*core.Core, error) {
	pins, err := cfg.PinMap()
	if err != nil {
		return nil, err
	}

	usbDriver := ftdi.NewDriver(cfg.Adapter.VendorID, cfg.Adapter.ProductID, logger)
	if cfg.Locator.SysRoot != "" {
		usbDriver.SysRoot = cfg.Locator.SysRoot
	}
	driver := adapter.Exclusive(usbDriver, cfg.LockPath())

	s, err := session.New(driver, pins,
		session.WithSettle(time.Duration(cfg.Settle)),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	l, err := locate.New(locate.Options{
		Strategy:   cfg.Locator.Strategy,
		Driver:     driver,
		PortFormat: cfg.Locator.PortFormat,
		SysRoot:    cfg.Locator.SysRoot,
		DevDir:     cfg.Locator.DevDir,
		VendorID:   cfg.Adapter.VendorID,
		ProductID:  cfg.Adapter.ProductID,
		Port:       cfg.Locator.Port,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	f := flasher.New(logger)
	f.Program = cfg.Programmer.Path
	f.Address = cfg.Programmer.Address
	f.Verify = cfg.Verify()
	f.ExtraArgs = cfg.Programmer.ExtraArgs
	f.Output = programmerOutput

	policy := core.Policy{AbortOnEnterFailure: cfg.AbortOnEnterFailure()}
	return core.New(l, s, f, policy, logger), nil
}

func serve(
	c *core.Core,
	cfg *config.Config,
	stderrWriter io.Writer,
	stderrLogger *log.Logger,
	shortMemoryWriter, longMemoryWriter *logs.MemoryWriter,
) int {
	s, err := server.New(c, cfg.Server.Listen, stderrWriter, shortMemoryWriter, longMemoryWriter, version)
	if err != nil {
		stderrLogger.Printf("https: %s", err)
		return exitFailure
	}
	stderrLogger.Printf("listening on http://%s/status/", cfg.Server.Listen)
	if err := s.Run(); err != nil {
		stderrLogger.Printf("https: %s", err)
		return exitFailure
	}
	return exitOK
}

func fail(stderrLogger *log.Logger, err error) int {
	var pe *core.PhaseError
	switch {
	case errors.Is(err, adapter.ErrDeviceNotFound):
		stderrLogger.Printf("no FT232R adapter found: %s", err)
	case errors.Is(err, adapter.ErrBusy):
		stderrLogger.Printf("adapter in use by another session: %s", err)
	case errors.As(err, &pe) && pe.Phase == core.PhaseFlash:
		stderrLogger.Printf("programmer failed: %s", err)
	default:
		stderrLogger.Printf("error: %s", err)
	}
	return exitFailure
}
