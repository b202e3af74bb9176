// Package printer defines the driver contract used to talk to a receipt printer
// and the drivers shipped with the server.
package printer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrNotConnected     = errors.New("printer not connected")
	ErrSimulatedFailure = errors.New("simulated failure")
	ErrUnknownDriver    = errors.New("unknown printer driver")
	ErrMissingAddr      = errors.New("printer address is required")
)

// DeviceInfo is a read-only snapshot of the printer specs.
type DeviceInfo struct {
	Model           string `json:"model"`
	PaperWidth      string `json:"paperWidth"`
	FirmwareVersion string `json:"firmwareVersion"`
	SerialNumber    string `json:"serialNumber"`
}

// Driver is the five-call contract of a printer device.
// Implementations are not required to be safe for concurrent sessions;
// callers serialize access to a single device.
type Driver interface {
	Connect(ctx context.Context) error
	PrintText(ctx context.Context, text string) error
	TestPrint(ctx context.Context) error
	GetPrinterSpecs(ctx context.Context) (DeviceInfo, error)
	Disconnect(ctx context.Context) error
}

// Pinger is implemented by drivers that can check the device is reachable
// without opening a session.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures driver construction.
type Options struct {
	Kind        string
	Addr        string
	PaperWidth  string
	SimFailures []string
}

// New builds the driver named by opts.Kind.
func New(opts Options) (Driver, error) {
	switch strings.ToLower(opts.Kind) {
	case "", "sim":
		return NewSimDriver(SimConfig{
			PaperWidth: opts.PaperWidth,
			FailOn:     opts.SimFailures,
		}), nil
	case "escpos":
		if opts.Addr == "" {
			return nil, ErrMissingAddr
		}
		return NewESCPOSDriver(ESCPOSConfig{
			Addr:       opts.Addr,
			PaperWidth: opts.PaperWidth,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, opts.Kind)
	}
}
