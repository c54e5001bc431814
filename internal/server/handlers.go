package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ardnew/otgmode/internal/notify"
	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port"
)

// StateResponse is the body of GET /state.
type StateResponse struct {
	State       port.State   `json:"state"`
	Notice      port.Notice  `json:"notice"`
	Connected   bool         `json:"connected"`
	DefaultMode *port.Mode   `json:"default_mode,omitempty"`
	LineEnabled *bool        `json:"line_enabled,omitempty"`
	Devices     []DeviceInfo `json:"devices,omitempty"`
}

// DeviceInfo describes one attached USB peripheral.
type DeviceInfo struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Description string `json:"description"`
}

// ModeRequest is the body of POST /mode.
type ModeRequest struct {
	Mode    port.Mode `json:"mode"`
	Persist bool      `json:"persist"`
}

type modeRequestBody struct {
	Mode    *port.Mode `json:"mode"`
	Persist bool       `json:"persist"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	notice := s.opts.Hub.Notice()
	resp := StateResponse{
		State:     s.opts.Arbiter.State(),
		Notice:    notice,
		Connected: notice.Connected(),
	}
	if s.opts.Store != nil {
		if m, err := s.opts.Store.DefaultMode(r.Context()); err == nil {
			resp.DefaultMode = &m
		} else {
			pkg.LogWarn(pkg.ComponentServer, "read default mode", "error", err)
		}
	}
	if s.opts.Line != nil {
		if on, err := s.opts.Line.Enabled(); err == nil {
			resp.LineEnabled = &on
		} else {
			pkg.LogWarn(pkg.ComponentServer, "read OTG line", "error", err)
		}
	}
	if s.opts.Devices != nil {
		devs, err := s.opts.Devices.Devices()
		if err != nil {
			pkg.LogWarn(pkg.ComponentServer, "enumerate devices", "error", err)
		}
		for _, d := range devs {
			resp.Devices = append(resp.Devices, DeviceInfo{
				Name:        d.Name,
				ID:          fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID),
				Description: s.opts.Names.Describe(d.VendorID, d.ProductID),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var body modeRequestBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if body.Mode == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mode is required"})
		return
	}
	req := ModeRequest{Mode: *body.Mode, Persist: body.Persist}

	err := s.opts.Modes.RequestMode(r.Context(), req.Mode, req.Persist)
	switch {
	case err == nil:
		pkg.LogInfo(pkg.ComponentServer, "mode requested", "mode", req.Mode, "persist", req.Persist)
		writeJSON(w, http.StatusAccepted, req)
	case errors.Is(err, pkg.ErrInvalidMode), errors.Is(err, pkg.ErrInvalidParameter):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, pkg.ErrStopped):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		pkg.LogError(pkg.ComponentServer, "mode request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		pkg.LogWarn(pkg.ComponentServer, "websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())

	sub := s.opts.Hub.Subscribe()
	defer s.opts.Hub.Unsubscribe(sub)
	if s.opts.Metrics != nil {
		s.opts.Metrics.Subscribers.Add(ctx, 1)
		defer s.opts.Metrics.Subscribers.Add(r.Context(), -1)
	}
	pkg.LogDebug(pkg.ComponentServer, "event subscriber connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				pkg.LogDebug(pkg.ComponentServer, "event subscriber gone", "error", err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev notify.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
