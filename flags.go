package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

type mode string

const (
	modeFlash  mode = "flash"
	modeLocate mode = "locate"
	modeEnter  mode = "enter"
	modeExit   mode = "exit"
	modeServe  mode = "serve"
)

func (m *mode) String() string {
	return string(*m)
}

func (m *mode) Set(value string) error {
	switch mode(value) {
	case modeFlash, modeLocate, modeEnter, modeExit, modeServe:
		*m = mode(value)
		return nil
	}
	return fmt.Errorf("unknown mode %q", value)
}

type initOptions struct {
	config      string
	mode        mode
	port        string
	logfile     string
	verbose     bool
	versionFlag bool
	firmware    string
}

var errUsage = errors.New("usage")

func parseFlags(args []string, output io.Writer) (initOptions, error) {
	options := initOptions{mode: modeFlash}

	fs := flag.NewFlagSet("cbusboot", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: cbusboot [flags] <firmware.bin>")
		fs.PrintDefaults()
	}
	fs.StringVar(
		&(options.config),
		"c",
		"",
		"YAML configuration file",
	)
	fs.Var(
		&(options.mode),
		"m",
		"What to do: flash, locate, enter, exit or serve",
	)
	fs.StringVar(
		&(options.port),
		"p",
		"",
		"Use this communication port instead of looking for the adapter. Example: cbusboot -p COM4 app.bin",
	)
	fs.StringVar(
		&(options.logfile),
		"l",
		"",
		"Log into a file, rotating after 20MB",
	)
	fs.BoolVar(
		&(options.verbose),
		"v",
		false,
		"Write verbose logs to either stderr or logfile",
	)
	fs.BoolVar(
		&(options.versionFlag),
		"version",
		false,
		"Write version",
	)
	if err := fs.Parse(args); err != nil {
		return options, err
	}
	if options.versionFlag {
		return options, nil
	}

	rest := fs.Args()
	if options.mode == modeFlash {
		if len(rest) != 1 {
			fs.Usage()
			return options, errUsage
		}
		options.firmware = rest[0]
		return options, nil
	}
	if len(rest) != 0 {
		fs.Usage()
		return options, errUsage
	}
	return options, nil
}
