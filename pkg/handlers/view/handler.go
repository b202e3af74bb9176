// Package view serves the console state a touch UI would render: the text
// input, the activity log and the device-info modal.
package view

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labring/sunmi-print-server/pkg/activity"
	"github.com/labring/sunmi-print-server/pkg/common"
	"github.com/labring/sunmi-print-server/pkg/console"
)

// ViewHandler handles console state reads and edits
type ViewHandler struct {
	state *console.State
}

// NewViewHandler creates a view handler
func NewViewHandler(state *console.State) *ViewHandler {
	return &ViewHandler{state: state}
}

type InputRequest struct {
	Text string `json:"text"`
}

type InputResponse struct {
	Text string `json:"text"`
}

type LogsResponse struct {
	Lines    []string         `json:"lines"`
	Entries  []activity.Entry `json:"entries"`
	Count    int              `json:"count"`
	Total    int              `json:"total"`
	Capacity int              `json:"capacity"`
}

type ModalResponse struct {
	Modal *console.Modal `json:"modal"`
}

type DismissResponse struct {
	Dismissed bool  `json:"dismissed"`
	Timestamp int64 `json:"timestamp"`
}

// GetInput returns the text input field
func (h *ViewHandler) GetInput(w http.ResponseWriter, r *http.Request) {
	common.WriteSuccessResponse(w, InputResponse{Text: h.state.Input()})
}

// SetInput replaces the text input field
func (h *ViewHandler) SetInput(w http.ResponseWriter, r *http.Request) {
	var req InputRequest
	if err := common.ParseJSONBodyReturn(w, r, &req); err != nil {
		return
	}

	h.state.SetInput(req.Text)
	common.WriteSuccessResponse(w, InputResponse{Text: req.Text})
}

// GetLogs returns the activity log. "since" returns entries after a sequence
// number; otherwise "tail" limits the result to the newest entries.
func (h *ViewHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	log := h.state.Log()

	var entries []activity.Entry
	switch {
	case query.Get("since") != "":
		since, err := strconv.ParseInt(query.Get("since"), 10, 64)
		if err != nil || since < 0 {
			common.WriteErrorResponse(w, common.StatusInvalidRequest, "Invalid since parameter: %s", query.Get("since"))
			return
		}
		entries = log.Since(since)
	default:
		tail := 0
		if tailStr := query.Get("tail"); tailStr != "" {
			t, err := strconv.Atoi(tailStr)
			if err != nil || t < 0 {
				common.WriteErrorResponse(w, common.StatusInvalidRequest, "Invalid tail parameter: %s", tailStr)
				return
			}
			tail = t
		}
		entries = log.Tail(tail)
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Line()
	}

	common.WriteSuccessResponse(w, LogsResponse{
		Lines:    lines,
		Entries:  entries,
		Count:    len(entries),
		Total:    log.Len(),
		Capacity: log.Capacity(),
	})
}

// GetModal returns the open device-info modal
func (h *ViewHandler) GetModal(w http.ResponseWriter, r *http.Request) {
	modal := h.state.Modal()
	if modal == nil {
		common.WriteErrorResponse(w, common.StatusNotFound, "No device info to show")
		return
	}
	common.WriteSuccessResponse(w, ModalResponse{Modal: modal})
}

// DismissModal closes the device-info modal
func (h *ViewHandler) DismissModal(w http.ResponseWriter, r *http.Request) {
	common.WriteSuccessResponse(w, DismissResponse{
		Dismissed: h.state.DismissModal(),
		Timestamp: time.Now().Unix(),
	})
}
