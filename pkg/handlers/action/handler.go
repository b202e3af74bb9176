package action

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/labring/sunmi-print-server/pkg/activity"
	"github.com/labring/sunmi-print-server/pkg/common"
	"github.com/labring/sunmi-print-server/pkg/console"
	"github.com/labring/sunmi-print-server/pkg/errors"
	"github.com/labring/sunmi-print-server/pkg/middleware"
	"github.com/labring/sunmi-print-server/pkg/printer"
	"github.com/labring/sunmi-print-server/pkg/session"
)

// Runner performs one printer session
type Runner interface {
	Run(ctx context.Context, op session.Operation) (*session.Result, error)
}

// ActionHandler handles the three printer buttons
type ActionHandler struct {
	runner Runner
	state  *console.State
}

// PrintCustomRequest optionally carries the text to print. When Text is
// absent the stored input field is printed.
type PrintCustomRequest struct {
	Text *string `json:"text,omitempty"`
}

// ActionResponse describes what a session appended to the activity log
type ActionResponse struct {
	SessionID  string              `json:"sessionId"`
	Operation  session.Kind        `json:"operation"`
	Entries    []activity.Entry    `json:"entries"`
	Lines      []string            `json:"lines"`
	DeviceInfo *printer.DeviceInfo `json:"deviceInfo,omitempty"`
}

// NewActionHandler creates an action handler
func NewActionHandler(runner Runner, state *console.State) *ActionHandler {
	return &ActionHandler{
		runner: runner,
		state:  state,
	}
}

// PrintCustom prints the request text, or the input field when none is given
func (h *ActionHandler) PrintCustom(w http.ResponseWriter, r *http.Request) {
	var req PrintCustomRequest
	if err := common.ParseOptionalJSONBody(w, r, &req); err != nil {
		return
	}

	text := h.state.Input()
	if req.Text != nil {
		text = *req.Text
		h.state.SetInput(text)
	}

	h.run(w, r, session.PrintText(text))
}

// PrintTest prints the driver's test page
func (h *ActionHandler) PrintTest(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, session.PrintTest())
}

// PrinterInfo fetches the device specs and opens the device-info modal
func (h *ActionHandler) PrinterInfo(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, session.FetchInfo())
}

func (h *ActionHandler) run(w http.ResponseWriter, r *http.Request, op session.Operation) {
	result, err := h.runner.Run(r.Context(), op)
	if err != nil {
		if stderrors.Is(err, session.ErrQueueCanceled) {
			slog.Info("action canceled while waiting for printer",
				slog.String("operation", string(op.Kind)),
				slog.String("trace_id", middleware.TraceID(r.Context())),
			)
			errors.WriteErrorResponse(w, errors.NewSessionCanceledError(err.Error()))
			return
		}
		common.WriteErrorResponse(w, common.StatusOperationError, "%s", err.Error())
		return
	}

	common.WriteSuccessResponse(w, newActionResponse(result))
}

func newActionResponse(result *session.Result) ActionResponse {
	lines := make([]string, len(result.Entries))
	for i, e := range result.Entries {
		lines[i] = e.Line()
	}
	return ActionResponse{
		SessionID:  result.SessionID,
		Operation:  result.Operation,
		Entries:    result.Entries,
		Lines:      lines,
		DeviceInfo: result.DeviceInfo,
	}
}
