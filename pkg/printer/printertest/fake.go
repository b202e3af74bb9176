// Package printertest provides a scriptable printer driver for tests.
package printertest

import (
	"context"
	"sync"

	"github.com/labring/sunmi-print-server/pkg/printer"
)

// Fake is a printer.Driver whose calls succeed or fail as configured.
type Fake struct {
	ConnectErr    error
	PrintTextErr  error
	TestPrintErr  error
	SpecsErr      error
	DisconnectErr error
	Info          printer.DeviceInfo

	// Hook runs on every call, after the call is recorded.
	Hook func(ctx context.Context, call string)

	mu    sync.Mutex
	calls []string
	texts []string
}

// NewFake returns a fake driver that succeeds on every call
func NewFake() *Fake {
	return &Fake{
		Info: printer.DeviceInfo{
			Model:           "T2-GPIOINT",
			PaperWidth:      "80mm",
			FirmwareVersion: "1.05",
			SerialNumber:    "XXXXXXXXXXXXXXXXXXXX",
		},
	}
}

func (f *Fake) record(ctx context.Context, call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.Hook != nil {
		f.Hook(ctx, call)
	}
}

func (f *Fake) Connect(ctx context.Context) error {
	f.record(ctx, printer.CallConnect)
	return f.ConnectErr
}

func (f *Fake) PrintText(ctx context.Context, text string) error {
	f.record(ctx, printer.CallPrintText)
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return f.PrintTextErr
}

func (f *Fake) TestPrint(ctx context.Context) error {
	f.record(ctx, printer.CallTestPrint)
	return f.TestPrintErr
}

func (f *Fake) GetPrinterSpecs(ctx context.Context) (printer.DeviceInfo, error) {
	f.record(ctx, printer.CallSpecs)
	if f.SpecsErr != nil {
		return printer.DeviceInfo{}, f.SpecsErr
	}
	return f.Info, nil
}

func (f *Fake) Disconnect(ctx context.Context) error {
	f.record(ctx, printer.CallDisconnect)
	return f.DisconnectErr
}

// Calls returns the call names in the order they were made
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]string, len(f.calls))
	copy(result, f.calls)
	return result
}

// Texts returns the text passed to each PrintText call
func (f *Fake) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]string, len(f.texts))
	copy(result, f.texts)
	return result
}
