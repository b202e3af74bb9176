// Package console holds the user-facing state of the print console: the text
// input field, the activity log and the device-info modal.
package console

import (
	"sync"
	"time"

	"github.com/labring/sunmi-print-server/pkg/activity"
	"github.com/labring/sunmi-print-server/pkg/printer"
)

// Modal is the device-info dialog waiting to be dismissed
type Modal struct {
	Title       string             `json:"title"`
	DeviceInfo  printer.DeviceInfo `json:"deviceInfo"`
	PresentedAt int64              `json:"presentedAt"`
}

// ModalBroadcaster pushes modal changes to live clients. A nil modal means dismissed.
type ModalBroadcaster interface {
	BroadcastModal(modal *Modal)
}

// State is the single owner of the console's mutable state.
type State struct {
	mu          sync.RWMutex
	input       string
	modal       *Modal
	log         *activity.Log
	broadcaster ModalBroadcaster
}

// NewState creates console state backed by log
func NewState(log *activity.Log) *State {
	return &State{log: log}
}

// SetBroadcaster sets the receiver of modal changes
func (s *State) SetBroadcaster(b ModalBroadcaster) {
	s.mu.Lock()
	s.broadcaster = b
	s.mu.Unlock()
}

// Log returns the activity log
func (s *State) Log() *activity.Log {
	return s.log
}

// SetInput replaces the text input field. Any string is accepted.
func (s *State) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// Input returns the current text input
func (s *State) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// PresentDeviceInfo opens the device-info modal. It implements session.Presenter.
func (s *State) PresentDeviceInfo(info printer.DeviceInfo) {
	modal := &Modal{
		Title:       "Device Info",
		DeviceInfo:  info,
		PresentedAt: time.Now().Unix(),
	}

	s.mu.Lock()
	s.modal = modal
	b := s.broadcaster
	s.mu.Unlock()

	if b != nil {
		b.BroadcastModal(modal)
	}
}

// Modal returns the open modal, or nil
func (s *State) Modal() *Modal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.modal == nil {
		return nil
	}
	m := *s.modal
	return &m
}

// DismissModal closes the modal. It reports whether one was open.
func (s *State) DismissModal() bool {
	s.mu.Lock()
	open := s.modal != nil
	s.modal = nil
	b := s.broadcaster
	s.mu.Unlock()

	if open && b != nil {
		b.BroadcastModal(nil)
	}
	return open
}
