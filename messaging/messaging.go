// Package messaging carries settings messages between a settings UI and the
// running simulator.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"typing-simulator/config"
	"typing-simulator/logger"
)

// Actions understood by the handler
const (
	ActionToggle         = "toggle"
	ActionUpdateSettings = "updateSettings"
	ActionGetSettings    = "getSettings"
)

// ErrUnknownAction is returned for requests with an unrecognised action
var ErrUnknownAction = errors.New("unknown action")

// Request is one message from the settings UI.
// errorRate inside Settings is already a fraction.
type Request struct {
	Action   string         `json:"action"`
	Enabled  *bool          `json:"enabled,omitempty"`
	Settings *config.Update `json:"settings,omitempty"`
}

// Ack answers every request that has no payload of its own
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Controller is the side of the simulator settings messages act on
type Controller interface {
	SetEnabled(ctx context.Context, enabled bool)
	UpdateSettings(ctx context.Context, u config.Update)
	Snapshot() config.Settings
}

// Handler decodes requests and applies them to a Controller
type Handler struct {
	Ctrl Controller
	Log  logger.Logger
}

// New creates a new Handler
func New(ctrl Controller, log logger.Logger) *Handler {
	return &Handler{Ctrl: ctrl, Log: log}
}

// Handle processes one raw request and returns the encoded response
func (h *Handler) Handle(ctx context.Context, raw []byte) ([]byte, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return h.nack(fmt.Errorf("decode request: %w", err))
	}

	resp, err := h.Dispatch(ctx, req)
	if err != nil {
		return h.nack(err)
	}
	return json.Marshal(resp)
}

// Dispatch applies a decoded request and returns the response value
func (h *Handler) Dispatch(ctx context.Context, req Request) (interface{}, error) {
	switch req.Action {
	case ActionToggle:
		if req.Enabled == nil {
			return nil, errors.New("toggle requires enabled")
		}
		h.Log.Info("Toggling simulator", "enabled", *req.Enabled)
		h.Ctrl.SetEnabled(ctx, *req.Enabled)
		return Ack{OK: true}, nil

	case ActionUpdateSettings:
		if req.Settings == nil || req.Settings.IsEmpty() {
			return Ack{OK: true}, nil
		}
		h.Ctrl.UpdateSettings(ctx, *req.Settings)
		return Ack{OK: true}, nil

	case ActionGetSettings:
		return h.Ctrl.Snapshot(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

func (h *Handler) nack(err error) ([]byte, error) {
	h.Log.Warn("Rejected settings message", "error", err)
	data, mErr := json.Marshal(Ack{OK: false, Error: err.Error()})
	if mErr != nil {
		return nil, mErr
	}
	return data, err
}
