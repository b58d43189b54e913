// Package flasher runs STM32CubeProgrammer's command line tool against the
// port the adapter was located on.
package flasher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/cbusboot/cbusboot-go/internal/logs"
)

// DefaultAddress is the start of STM32 user flash.
const DefaultAddress = 0x08000000

// DefaultProgram is the programmer executable looked up in PATH.
func DefaultProgram() string {
	if runtime.GOOS == "windows" {
		return "STM32_Programmer_CLI.exe"
	}
	return "STM32_Programmer_CLI"
}

var ErrNotAFile = errors.New("firmware is not a regular file")

// Flasher builds and runs one programmer invocation per firmware write.
type Flasher struct {
	Program   string
	Address   uint32
	Verify    bool
	ExtraArgs []string
	Output    io.Writer
	Logger    *logs.Logger
}

func New(logger *logs.Logger) *Flasher {
	return &Flasher{
		Program: DefaultProgram(),
		Address: DefaultAddress,
		Verify:  true,
		Logger:  logger,
	}
}

// Args returns the programmer arguments: connect on location, write firmware
// at Address and optionally verify.
func (f *Flasher) Args(location, firmware string) []string {
	args := []string{
		"-c", "port=" + location,
		"-w", firmware, fmt.Sprintf("0x%08X", f.Address),
	}
	if f.Verify {
		args = append(args, "-v")
	}
	return append(args, f.ExtraArgs...)
}

// Flash writes firmware through the bootloader listening on location. The
// file must exist; its content is left to the programmer.
func (f *Flasher) Flash(ctx context.Context, location, firmware string) error {
	fi, err := os.Stat(firmware)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotAFile, firmware)
	}

	args := f.Args(location, firmware)
	f.Logger.Logf("running %s %v", f.Program, args)

	cmd := exec.CommandContext(ctx, f.Program, args...)
	if f.Output != nil {
		cmd.Stdout = f.Output
		cmd.Stderr = f.Output
	}
	if err := cmd.Run(); err != nil {
		f.Logger.Log("programmer failed: " + err.Error())
		return fmt.Errorf("%s: %w", f.Program, err)
	}
	f.Logger.Log("programmer done")
	return nil
}
