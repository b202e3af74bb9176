// Package session runs connect/operate/disconnect printer sessions.
//
// Each phase is attempted exactly once. A failing phase is logged to the
// activity log and does not stop the phases after it. Sessions against the
// single device are serialized.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labring/sunmi-print-server/pkg/activity"
	"github.com/labring/sunmi-print-server/pkg/printer"
)

// ErrQueueCanceled is returned when the caller gives up while another session holds the device
var ErrQueueCanceled = errors.New("session canceled while waiting for printer")

// Presenter shows device info to the user once
type Presenter interface {
	PresentDeviceInfo(info printer.DeviceInfo)
}

// Recorder observes session outcomes. err is nil for a successful phase.
type Recorder interface {
	PhaseCompleted(kind Kind, phase string, err error)
	SessionCompleted(kind Kind, duration time.Duration)
	Waiting(delta int)
}

// Result describes what a single Run produced
type Result struct {
	SessionID  string              `json:"sessionId"`
	Operation  Kind                `json:"operation"`
	Entries    []activity.Entry    `json:"entries"`
	DeviceInfo *printer.DeviceInfo `json:"deviceInfo,omitempty"`
}

// Options configures an Orchestrator
type Options struct {
	// PhaseTimeout bounds every driver call. Zero means no timeout.
	PhaseTimeout time.Duration
	Presenter    Presenter
	Recorder     Recorder
}

// Orchestrator owns the printer device and sequences sessions against it.
type Orchestrator struct {
	driver    printer.Driver
	log       *activity.Log
	presenter Presenter
	recorder  Recorder
	timeout   time.Duration

	// slot is the single device connection; holding it means owning the device.
	slot chan struct{}
}

// NewOrchestrator creates an orchestrator for driver that reports to log
func NewOrchestrator(driver printer.Driver, log *activity.Log, opts Options) *Orchestrator {
	return &Orchestrator{
		driver:    driver,
		log:       log,
		presenter: opts.Presenter,
		recorder:  opts.Recorder,
		timeout:   opts.PhaseTimeout,
		slot:      make(chan struct{}, 1),
	}
}

// Run performs one session for op. Phase failures are logged, never returned.
// The only error is ErrQueueCanceled, when ctx ends before the device is free.
func (o *Orchestrator) Run(ctx context.Context, op Operation) (*Result, error) {
	result := &Result{
		SessionID: uuid.NewString(),
		Operation: op.Kind,
		Entries:   make([]activity.Entry, 0, 3),
	}

	if op.Kind == KindPrintText && op.Text == "" {
		result.Entries = append(result.Entries, o.log.Append(MsgNoCustomMessage))
		return result, nil
	}

	switch op.Kind {
	case KindPrintText, KindPrintTest, KindFetchInfo:
	default:
		return nil, fmt.Errorf("unknown operation: %q", op.Kind)
	}

	if err := o.acquire(ctx); err != nil {
		return nil, err
	}
	defer o.release()

	start := time.Now()
	// Once started, a session is not abandoned because its caller went away.
	ctx = context.WithoutCancel(ctx)
	logger := slog.With(
		slog.String("session_id", result.SessionID),
		slog.String("operation", string(op.Kind)),
	)
	logger.Debug("session started")

	s := &run{o: o, ctx: ctx, kind: op.Kind, result: result, logger: logger}

	s.phase(PhaseConnect, o.driver.Connect, MsgConnected, msgConnectFailed)

	disconnect := true
	switch op.Kind {
	case KindPrintText:
		s.phase(PhaseOperate, func(ctx context.Context) error {
			return o.driver.PrintText(ctx, op.Text)
		}, MsgPrintSent, msgPrintFailed)
	case KindPrintTest:
		s.phase(PhaseOperate, o.driver.TestPrint, MsgTestPrintSent, msgTestPrintFailed)
	case KindFetchInfo:
		// A failed fetch leaves the device connected; disconnect only follows success.
		disconnect = s.fetchInfo()
	}

	if disconnect {
		s.phase(PhaseDisconnect, o.driver.Disconnect, MsgDisconnected, msgDisconnectFailed)
	}

	duration := time.Since(start)
	if o.recorder != nil {
		o.recorder.SessionCompleted(op.Kind, duration)
	}
	logger.Debug("session finished", slog.String("duration", duration.String()))

	return result, nil
}

func (o *Orchestrator) acquire(ctx context.Context) error {
	select {
	case o.slot <- struct{}{}:
		return nil
	default:
	}

	if o.recorder != nil {
		o.recorder.Waiting(1)
		defer o.recorder.Waiting(-1)
	}

	select {
	case o.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrQueueCanceled, ctx.Err())
	}
}

func (o *Orchestrator) release() {
	<-o.slot
}

// run carries the state of one in-flight session
type run struct {
	o      *Orchestrator
	ctx    context.Context
	kind   Kind
	result *Result
	logger *slog.Logger
}

func (s *run) call(fn func(ctx context.Context) error) error {
	ctx := s.ctx
	if s.o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.o.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// phase runs fn and appends exactly one entry describing the outcome
func (s *run) phase(name string, fn func(ctx context.Context) error, okMsg, failFmt string) {
	err := s.call(fn)
	s.record(name, err)
	if err != nil {
		s.logger.Warn("phase failed", slog.String("phase", name), slog.String("error", err.Error()))
		s.append(fmt.Sprintf(failFmt, err.Error()))
		return
	}
	s.logger.Debug("phase succeeded", slog.String("phase", name))
	s.append(okMsg)
}

func (s *run) fetchInfo() bool {
	var info printer.DeviceInfo
	err := s.call(func(ctx context.Context) error {
		var err error
		info, err = s.o.driver.GetPrinterSpecs(ctx)
		return err
	})
	s.record(PhaseOperate, err)
	if err != nil {
		s.logger.Warn("phase failed", slog.String("phase", PhaseOperate), slog.String("error", err.Error()))
		s.append(fmt.Sprintf(msgInfoFailed, err.Error()))
		return false
	}

	s.result.DeviceInfo = &info
	if s.o.presenter != nil {
		s.o.presenter.PresentDeviceInfo(info)
	}
	return true
}

func (s *run) record(phase string, err error) {
	if s.o.recorder != nil {
		s.o.recorder.PhaseCompleted(s.kind, phase, err)
	}
}

func (s *run) append(msg string) {
	s.result.Entries = append(s.result.Entries, s.o.log.Append(msg))
}
