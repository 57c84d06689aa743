package worker

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/tools"
)

// CloneRequest is the body of POST /clone.
type CloneRequest struct {
	URL       string `json:"url"`
	Commitish string `json:"commitish,omitempty"`
}

// CloneResponse is the success body of POST /clone.
type CloneResponse struct {
	OK       bool   `json:"ok"`
	Slug     string `json:"slug"`
	SHA      string `json:"sha"`
	Worktree string `json:"worktree"`
}

// ToolResponse is the success body of POST /tool.
type ToolResponse struct {
	OK     bool   `json:"ok"`
	Output string `json:"output"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	var req CloneRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, platformerrors.New(platformerrors.CodeInvalidInput, "url is required"))
		return
	}

	ctx := r.Context()
	start := time.Now()
	h, err := s.cache.Connect(ctx, req.URL, req.Commitish)
	s.metrics.CloneDuration.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		clog.FromContext(ctx).With("url", req.URL, "commitish", req.Commitish).Errorf("Clone failed: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CloneResponse{
		OK:       true,
		Slug:     h.Slug,
		SHA:      h.SHA,
		Worktree: h.LocalPath,
	})
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req tools.Request
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	switch {
	case req.Slug == "":
		writeError(w, platformerrors.New(platformerrors.CodeInvalidInput, "slug is required"))
		return
	case req.SHA == "":
		writeError(w, platformerrors.New(platformerrors.CodeInvalidInput, "sha is required"))
		return
	case req.Name == "":
		writeError(w, platformerrors.New(platformerrors.CodeInvalidInput, "name is required"))
		return
	}

	ctx := r.Context()
	h, err := s.cache.Lookup(req.Slug, req.SHA)
	if err != nil {
		writeError(w, err)
		return
	}

	output, err := s.tools.Run(ctx, h.LocalPath, req.Name, req.Args)
	s.metrics.ToolInvocations.WithLabelValues(toolLabel(req.Name), outcome(err)).Inc()
	if err != nil {
		clog.FromContext(ctx).With("tool", req.Name, "slug", req.Slug).Warnf("Tool failed: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ToolResponse{OK: true, Output: output})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// decode reads a JSON body of at most MaxBodyBytes into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return platformerrors.Newf(platformerrors.CodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "malformed JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, platformerrors.HTTPStatus(err), platformerrors.ToJSON(err))
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(string(platformerrors.GetCode(err)))
}

// toolLabel bounds the label set to known tool names.
func toolLabel(name string) string {
	for _, known := range tools.Names {
		if name == known {
			return name
		}
	}
	return "unknown"
}
