package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgnsrekt/aloud/internal/content"
	"github.com/dgnsrekt/aloud/internal/speech"
)

// ReadRequest is the body of POST /read. Exactly one of Text or URL must be set.
type ReadRequest struct {
	Text  string   `json:"text,omitempty"`
	URL   string   `json:"url,omitempty"`
	Voice string   `json:"voice,omitempty"`
	Speed *float64 `json:"speed,omitempty"`
}

// StatusResponse reports the outcome of a read or stop request.
type StatusResponse struct {
	Status string `json:"status"`
}

// VoicesResponse is the body of GET /voices.
type VoicesResponse struct {
	Voices []speech.Voice `json:"voices"`
}

// ErrorResponse carries the message of a failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.newEngine().Voices(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if voices == nil {
		voices = []speech.Voice{}
	}
	writeJSON(w, http.StatusOK, VoicesResponse{Voices: voices})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var req ReadRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Detail: "Request body too large."})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "Invalid JSON body: " + err.Error()})
		return
	}

	speed := speech.DefaultSpeed
	if req.Speed != nil {
		speed = *req.Speed
	}
	if speed <= 0 {
		s.writeError(w, speech.InvalidInput("Speed must be greater than 0."))
		return
	}

	text, err := content.Resolve(r.Context(), s.fetcher, req.Text, req.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	engine := s.newEngine().Configure(speech.Settings{Voice: req.Voice, Speed: speed})
	err = s.player.Play(engine.Kind(), func() (*speech.Handle, error) {
		// Playback outlives the request.
		return engine.Start(context.WithoutCancel(r.Context()), text)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Started reading", "backend", engine.Kind(), "chars", len(text), "voice", req.Voice, "speed", speed)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "started"})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	stopped, err := s.player.Stop()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !stopped {
		writeJSON(w, http.StatusOK, StatusResponse{Status: "idle"})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "stopped"})
}

// statusFor maps a speech error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, speech.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, speech.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", code, "error", err)
	}
	writeJSON(w, code, ErrorResponse{Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
