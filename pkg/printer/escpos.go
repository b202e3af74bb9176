package printer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// ESC/POS command bytes
var (
	cmdInit     = []byte{0x1B, 0x40}       // ESC @
	cmdFeed     = []byte{0x1B, 0x64, 0x03} // ESC d 3
	cmdInfoBase = []byte{0x1D, 0x49}       // GS I n
)

// GS I argument values
const (
	infoFirmware byte = 65
	infoModel    byte = 67
	infoSerial   byte = 68
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReplyTimeout = 3 * time.Second

	infoReplyHeader byte = 0x5F
)

var errMalformedReply = errors.New("malformed printer id reply")

// ESCPOSConfig configures a raw TCP ESC/POS printer
type ESCPOSConfig struct {
	Addr         string
	PaperWidth   string
	DialTimeout  time.Duration
	ReplyTimeout time.Duration
}

// ESCPOSDriver talks raw ESC/POS to a networked receipt printer.
type ESCPOSDriver struct {
	cfg    ESCPOSConfig
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewESCPOSDriver creates a driver for the printer listening at cfg.Addr
func NewESCPOSDriver(cfg ESCPOSConfig) *ESCPOSDriver {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaultReplyTimeout
	}
	if cfg.PaperWidth == "" {
		cfg.PaperWidth = "80mm"
	}
	return &ESCPOSDriver{cfg: cfg}
}

func (d *ESCPOSDriver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: d.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.cfg.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", d.cfg.Addr, err)
	}

	d.conn = conn
	d.reader = bufio.NewReader(conn)
	return nil
}

func (d *ESCPOSDriver) PrintText(ctx context.Context, text string) error {
	return d.write(ctx, cmdInit, []byte(text), []byte("\n"), cmdFeed)
}

func (d *ESCPOSDriver) TestPrint(ctx context.Context) error {
	page := testPage(DeviceInfo{PaperWidth: d.cfg.PaperWidth})
	return d.write(ctx, cmdInit, []byte(page), cmdFeed)
}

func (d *ESCPOSDriver) GetPrinterSpecs(ctx context.Context) (DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return DeviceInfo{}, ErrNotConnected
	}

	model, err := d.queryLocked(ctx, infoModel)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("query model: %w", err)
	}
	firmware, err := d.queryLocked(ctx, infoFirmware)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("query firmware: %w", err)
	}
	serial, err := d.queryLocked(ctx, infoSerial)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("query serial: %w", err)
	}

	return DeviceInfo{
		Model:           model,
		PaperWidth:      d.cfg.PaperWidth,
		FirmwareVersion: firmware,
		SerialNumber:    serial,
	}, nil
}

// Ping dials the printer and hangs up. An open session counts as reachable.
func (d *ESCPOSDriver) Ping(ctx context.Context) error {
	d.mu.Lock()
	connected := d.conn != nil
	d.mu.Unlock()
	if connected {
		return nil
	}

	dialer := net.Dialer{Timeout: d.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.cfg.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", d.cfg.Addr, err)
	}
	return conn.Close()
}

func (d *ESCPOSDriver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return ErrNotConnected
	}

	err := d.conn.Close()
	d.conn = nil
	d.reader = nil
	return err
}

func (d *ESCPOSDriver) write(ctx context.Context, chunks ...[]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return ErrNotConnected
	}

	if deadline, ok := ctx.Deadline(); ok {
		d.conn.SetWriteDeadline(deadline)
		defer d.conn.SetWriteDeadline(time.Time{})
	}

	for _, chunk := range chunks {
		if _, err := d.conn.Write(chunk); err != nil {
			return fmt.Errorf("write to printer: %w", err)
		}
	}
	return nil
}

// queryLocked sends GS I n and reads the "_<data>\x00" reply.
func (d *ESCPOSDriver) queryLocked(ctx context.Context, n byte) (string, error) {
	deadline := time.Now().Add(d.cfg.ReplyTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	d.conn.SetDeadline(deadline)
	defer d.conn.SetDeadline(time.Time{})

	cmd := append(append([]byte{}, cmdInfoBase...), n)
	if _, err := d.conn.Write(cmd); err != nil {
		return "", err
	}

	reply, err := d.reader.ReadBytes(0x00)
	if err != nil {
		return "", err
	}
	if len(reply) < 2 || reply[0] != infoReplyHeader {
		return "", errMalformedReply
	}
	return strings.TrimSpace(string(reply[1 : len(reply)-1])), nil
}
