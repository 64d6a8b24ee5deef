package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/five82/logview/internal/logsource"
	"github.com/five82/logview/internal/logtail"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, logsource.HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.watcher.Store().Snapshot()
	resp := logsource.StatusResponse{
		File:                snap.File,
		Offset:              snap.Offset,
		Subscribers:         snap.Subscribers,
		LinesPublished:      snap.LinesPublished,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		LastUpdated:         snap.LastUpdated,
	}
	if snap.LastError != nil {
		resp.LastError = snap.LastError.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleContent returns the whole file, or its last lines with ?tail=N.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	path := s.watcher.File()

	if raw := r.URL.Query().Get("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "tail must be a positive integer")
			return
		}
		lines, err := logtail.Read(path, n)
		if err != nil {
			s.logger.Warn("read log tail", zap.String("file", path), zap.Error(err))
			http.Error(w, "could not read log file", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, line := range lines {
			_, _ = io.WriteString(w, line+"\n")
		}
		return
	}

	file, err := os.Open(path)
	if err != nil {
		s.logger.Warn("open log", zap.String("file", path), zap.Error(err))
		http.Error(w, "could not open log file", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.Copy(w, file); err != nil {
		s.logger.Debug("copy log", zap.Error(err))
	}
}

// handleLogs streams each published line as one server-sent event.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	id, lines, cancel := s.watcher.Subscribe()
	defer cancel()
	logger := s.logger.With(zap.String("subscriber", id.String()))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Warn("streaming not supported", zap.Error(err))
		return
	}
	logger.Info("stream opened", zap.String("remote", r.RemoteAddr))
	defer logger.Info("stream closed")

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := writeEvent(w, line); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// writeEvent writes line as a data-only event. Embedded newlines become
// additional data fields, which clients join back with "\n".
func writeEvent(w io.Writer, line string) error {
	var b strings.Builder
	for _, part := range strings.Split(line, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(part, "\r"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// writeJSON writes JSON with status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a standardized JSON error
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

