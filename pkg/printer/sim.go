package printer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Call names accepted by SimConfig.FailOn.
const (
	CallConnect    = "connect"
	CallPrintText  = "print"
	CallTestPrint  = "test"
	CallSpecs      = "specs"
	CallDisconnect = "disconnect"
)

// SimConfig configures the simulated printer
type SimConfig struct {
	PaperWidth string
	Serial     string
	FailOn     []string
}

// SimDriver is an in-process stand-in for a SUNMI T2 printer.
type SimDriver struct {
	mu        sync.Mutex
	connected bool
	info      DeviceInfo
	failOn    map[string]bool
	printed   []string
}

// NewSimDriver creates a simulated printer driver
func NewSimDriver(cfg SimConfig) *SimDriver {
	width := cfg.PaperWidth
	if width == "" {
		width = "80mm"
	}
	serial := cfg.Serial
	if serial == "" {
		serial = "T2SIM0000000000000001"
	}

	failOn := make(map[string]bool, len(cfg.FailOn))
	for _, call := range cfg.FailOn {
		call = strings.ToLower(strings.TrimSpace(call))
		if call != "" {
			failOn[call] = true
		}
	}

	return &SimDriver{
		info: DeviceInfo{
			Model:           "T2-GPIOINT",
			PaperWidth:      width,
			FirmwareVersion: "1.05",
			SerialNumber:    serial,
		},
		failOn: failOn,
	}
}

func (d *SimDriver) fail(call string) error {
	if d.failOn[call] {
		return fmt.Errorf("%w: %s", ErrSimulatedFailure, call)
	}
	return nil
}

func (d *SimDriver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(CallConnect); err != nil {
		return err
	}
	d.connected = true
	return nil
}

func (d *SimDriver) PrintText(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(CallPrintText); err != nil {
		return err
	}
	if !d.connected {
		return ErrNotConnected
	}

	d.printed = append(d.printed, text)
	slog.Info("sim printer output", slog.String("text", text))
	return nil
}

func (d *SimDriver) TestPrint(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(CallTestPrint); err != nil {
		return err
	}
	if !d.connected {
		return ErrNotConnected
	}

	d.printed = append(d.printed, testPage(d.info))
	slog.Info("sim printer output", slog.String("text", "test page"))
	return nil
}

func (d *SimDriver) GetPrinterSpecs(ctx context.Context) (DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(CallSpecs); err != nil {
		return DeviceInfo{}, err
	}
	if !d.connected {
		return DeviceInfo{}, ErrNotConnected
	}
	return d.info, nil
}

// Ping fails when connect is configured to fail
func (d *SimDriver) Ping(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fail(CallConnect)
}

func (d *SimDriver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(CallDisconnect); err != nil {
		return err
	}
	d.connected = false
	return nil
}

// Connected reports whether the simulated device is connected
func (d *SimDriver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Printed returns everything the simulated device has printed
func (d *SimDriver) Printed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]string, len(d.printed))
	copy(result, d.printed)
	return result
}

// testPage is the body of a test print
func testPage(info DeviceInfo) string {
	var b strings.Builder
	b.WriteString("*** TEST PRINT ***\n")
	if info.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", info.Model)
	}
	if info.PaperWidth != "" {
		fmt.Fprintf(&b, "Paper: %s\n", info.PaperWidth)
	}
	b.WriteString("ABCDEFGHIJKLMNOPQRSTUVWXYZ\n")
	b.WriteString("abcdefghijklmnopqrstuvwxyz\n")
	b.WriteString("0123456789 !@#$%^&*()\n")
	b.WriteString("*** END ***\n")
	return b.String()
}
