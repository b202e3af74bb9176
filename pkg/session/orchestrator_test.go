package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/labring/sunmi-print-server/pkg/activity"
	"github.com/labring/sunmi-print-server/pkg/printer"
	"github.com/labring/sunmi-print-server/pkg/printer/printertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPresenter struct {
	mu    sync.Mutex
	shown []printer.DeviceInfo
}

func (p *recordingPresenter) PresentDeviceInfo(info printer.DeviceInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, info)
}

type phaseOutcome struct {
	kind  Kind
	phase string
	ok    bool
}

type recordingRecorder struct {
	mu       sync.Mutex
	phases   []phaseOutcome
	sessions []Kind
	waiting  int
	maxWait  int
}

func (r *recordingRecorder) PhaseCompleted(kind Kind, phase string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phaseOutcome{kind, phase, err == nil})
}

func (r *recordingRecorder) SessionCompleted(kind Kind, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, kind)
}

func (r *recordingRecorder) Waiting(delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waiting += delta
	if r.waiting > r.maxWait {
		r.maxWait = r.waiting
	}
}

type fixture struct {
	driver    *printertest.Fake
	log       *activity.Log
	presenter *recordingPresenter
	recorder  *recordingRecorder
	orch      *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		driver:    printertest.NewFake(),
		log:       activity.New(activity.Options{}),
		presenter: &recordingPresenter{},
		recorder:  &recordingRecorder{},
	}
	f.orch = NewOrchestrator(f.driver, f.log, Options{
		Presenter: f.presenter,
		Recorder:  f.recorder,
	})
	return f
}

func (f *fixture) messages() []string {
	entries := f.log.Entries()
	msgs := make([]string, len(entries))
	for i, e := range entries {
		msgs[i] = e.Message
	}
	return msgs
}

func TestRun_PrintTextEmpty(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Run(context.Background(), PrintText(""))
	require.NoError(t, err)

	assert.Equal(t, []string{MsgNoCustomMessage}, f.messages())
	assert.Empty(t, f.driver.Calls(), "no driver call may be issued")
	assert.Len(t, result.Entries, 1)
	assert.Empty(t, f.recorder.phases)
}

func TestRun_PrintTextAllSucceed(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Run(context.Background(), PrintText("hello"))
	require.NoError(t, err)

	assert.Equal(t, []string{MsgConnected, MsgPrintSent, MsgDisconnected}, f.messages())
	assert.Equal(t, []string{printer.CallConnect, printer.CallPrintText, printer.CallDisconnect}, f.driver.Calls())
	assert.Equal(t, []string{"hello"}, f.driver.Texts())
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, KindPrintText, result.Operation)
	assert.Len(t, result.Entries, 3)
	assert.Nil(t, result.DeviceInfo)
}

func TestRun_ConnectFailureDoesNotStopLaterPhases(t *testing.T) {
	f := newFixture(t)
	f.driver.ConnectErr = errors.New("device unreachable")

	_, err := f.orch.Run(context.Background(), PrintText("hello"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Failed to connect: device unreachable",
		MsgPrintSent,
		MsgDisconnected,
	}, f.messages())
	assert.Equal(t, []string{printer.CallConnect, printer.CallPrintText, printer.CallDisconnect}, f.driver.Calls())
}

func TestRun_EveryPhaseFails(t *testing.T) {
	testCases := []struct {
		name     string
		op       Operation
		expected []string
	}{
		{
			name: "print text",
			op:   PrintText("hello"),
			expected: []string{
				"Failed to connect: boom",
				"Failed to print text: boom",
				"Failed to disconnect: boom",
			},
		},
		{
			name: "print test",
			op:   PrintTest(),
			expected: []string{
				"Failed to connect: boom",
				"Failed to send test print: boom",
				"Failed to disconnect: boom",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			boom := errors.New("boom")
			f.driver.ConnectErr = boom
			f.driver.PrintTextErr = boom
			f.driver.TestPrintErr = boom
			f.driver.DisconnectErr = boom

			_, err := f.orch.Run(context.Background(), tc.op)
			require.NoError(t, err, "phase failures never propagate")
			assert.Equal(t, tc.expected, f.messages())
			assert.Len(t, f.driver.Calls(), 3, "each phase is attempted exactly once")
		})
	}
}

func TestRun_PrintTest(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Run(context.Background(), PrintTest())
	require.NoError(t, err)

	assert.Equal(t, []string{MsgConnected, MsgTestPrintSent, MsgDisconnected}, f.messages())
	assert.Equal(t, []string{printer.CallConnect, printer.CallTestPrint, printer.CallDisconnect}, f.driver.Calls())
}

func TestRun_FetchInfoSuccess(t *testing.T) {
	f := newFixture(t)
	f.driver.Info = printer.DeviceInfo{
		Model:           "T2-GPIOINT\n",
		PaperWidth:      "80mm",
		FirmwareVersion: "1.05\n",
		SerialNumber:    "XXXXXXXXXXXXXXXXXXXX",
	}

	result, err := f.orch.Run(context.Background(), FetchInfo())
	require.NoError(t, err)

	// Only connect and disconnect are logged; the fetch itself is shown as a modal
	assert.Equal(t, []string{MsgConnected, MsgDisconnected}, f.messages())
	require.Len(t, f.presenter.shown, 1)
	assert.Equal(t, f.driver.Info, f.presenter.shown[0], "fields are presented verbatim")
	require.NotNil(t, result.DeviceInfo)
	assert.Equal(t, f.driver.Info, *result.DeviceInfo)
	assert.Equal(t, []string{printer.CallConnect, printer.CallSpecs, printer.CallDisconnect}, f.driver.Calls())
}

func TestRun_FetchInfoFailure(t *testing.T) {
	f := newFixture(t)
	f.driver.SpecsErr = errors.New("timeout")

	result, err := f.orch.Run(context.Background(), FetchInfo())
	require.NoError(t, err)

	msgs := f.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, MsgConnected, msgs[0])
	assert.Contains(t, msgs[1], "Failed to get printer info.")
	assert.Contains(t, msgs[1], "timeout")

	infoFailures := 0
	for _, m := range msgs {
		if m == "Failed to get printer info.\n> timeout" {
			infoFailures++
		}
	}
	assert.Equal(t, 1, infoFailures)

	assert.Empty(t, f.presenter.shown, "no modal on failure")
	assert.Nil(t, result.DeviceInfo)
	assert.Equal(t, []string{printer.CallConnect, printer.CallSpecs}, f.driver.Calls(), "disconnect is skipped after a failed fetch")
}

func TestRun_UnknownOperation(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Run(context.Background(), Operation{Kind: "reboot"})
	assert.Error(t, err)
	assert.Empty(t, f.driver.Calls())
	assert.Empty(t, f.messages())
}

func TestRun_RecorderSeesEveryPhase(t *testing.T) {
	f := newFixture(t)
	f.driver.PrintTextErr = errors.New("paper out")

	_, err := f.orch.Run(context.Background(), PrintText("x"))
	require.NoError(t, err)

	assert.Equal(t, []phaseOutcome{
		{KindPrintText, PhaseConnect, true},
		{KindPrintText, PhaseOperate, false},
		{KindPrintText, PhaseDisconnect, true},
	}, f.recorder.phases)
	assert.Equal(t, []Kind{KindPrintText}, f.recorder.sessions)
}

func TestRun_PhaseTimeout(t *testing.T) {
	f := newFixture(t)
	f.orch = NewOrchestrator(f.driver, f.log, Options{PhaseTimeout: 20 * time.Millisecond})

	var deadlines []bool
	f.driver.Hook = func(ctx context.Context, call string) {
		_, ok := ctx.Deadline()
		deadlines = append(deadlines, ok)
	}

	_, err := f.orch.Run(context.Background(), PrintTest())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, deadlines)
}

func TestRun_CallerCancellationAfterStart(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	f.driver.Hook = func(callCtx context.Context, call string) {
		if call == printer.CallConnect {
			cancel()
		}
		assert.NoError(t, callCtx.Err(), "driver calls must not see caller cancellation")
	}

	_, err := f.orch.Run(ctx, PrintTest())
	require.NoError(t, err)
	assert.Len(t, f.messages(), 3)
}

func TestRun_SessionsSerialize(t *testing.T) {
	f := newFixture(t)

	release := make(chan struct{})
	firstConnected := make(chan struct{})
	var once sync.Once
	f.driver.Hook = func(ctx context.Context, call string) {
		if call == printer.CallConnect {
			once.Do(func() {
				close(firstConnected)
				<-release
			})
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.orch.Run(context.Background(), PrintText("first"))
		assert.NoError(t, err)
	}()

	<-firstConnected
	go func() {
		defer wg.Done()
		_, err := f.orch.Run(context.Background(), PrintText("second"))
		assert.NoError(t, err)
	}()

	// The second session must be queued, not interleaved
	require.Eventually(t, func() bool {
		f.recorder.mu.Lock()
		defer f.recorder.mu.Unlock()
		return f.recorder.waiting == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{printer.CallConnect}, f.driver.Calls())

	close(release)
	wg.Wait()

	assert.Equal(t, []string{
		printer.CallConnect, printer.CallPrintText, printer.CallDisconnect,
		printer.CallConnect, printer.CallPrintText, printer.CallDisconnect,
	}, f.driver.Calls())
	assert.Equal(t, []string{"first", "second"}, f.driver.Texts())
	assert.Equal(t, 1, f.recorder.maxWait)
}

func TestRun_QueueCanceled(t *testing.T) {
	f := newFixture(t)

	release := make(chan struct{})
	started := make(chan struct{})
	f.driver.Hook = func(ctx context.Context, call string) {
		if call == printer.CallConnect {
			close(started)
			<-release
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.orch.Run(context.Background(), PrintTest())
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	result, err := f.orch.Run(ctx, FetchInfo())
	assert.ErrorIs(t, err, ErrQueueCanceled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, result)

	close(release)
	<-done

	assert.Equal(t, []string{MsgConnected, MsgTestPrintSent, MsgDisconnected}, f.messages(),
		"the canceled session logs nothing")
}
