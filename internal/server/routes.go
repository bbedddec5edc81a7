package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/conformadev/conforma/internal/analysis"
	"github.com/conformadev/conforma/internal/audit"
	"github.com/conformadev/conforma/internal/idempotency"
	"github.com/conformadev/conforma/internal/job"
	"github.com/conformadev/conforma/internal/kb"
	"github.com/conformadev/conforma/internal/report"
)

// maxRequestBody caps submissions at 8 MiB of JSON.
const maxRequestBody = 8 << 20

type submitRequest struct {
	DocumentText string                `json:"documentText"`
	DocumentType analysis.DocumentType `json:"documentType"`
	NormCodes    []string              `json:"applicableNormCodes"`
	Strategy     job.Strategy          `json:"strategy"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleSubmit accepts a document for analysis. An Idempotency-Key header
// makes the submission replayable: the same key with the same body returns
// the original job, the same key with a different body is a 409.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var requestHash string
	if key != "" {
		requestHash = idempotency.HashRequest(body)
		cached, found, err := s.cache.Lookup(r.Context(), key, requestHash)
		if errors.Is(err, idempotency.ErrConflict) {
			writeError(w, http.StatusConflict, "chave de idempotência reutilizada com um corpo diferente")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if found {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(cached))
			return
		}
	}

	var req submitRequest
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentType == "" {
		req.DocumentType = analysis.DocTypeOutro
	}

	j, err := s.runner.Submit(r.Context(), analysis.Document{
		Text:      req.DocumentText,
		Type:      req.DocumentType,
		NormCodes: req.NormCodes,
	}, req.Strategy)
	switch {
	case errors.Is(err, job.ErrEmptyDocument):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		if strings.Contains(err.Error(), "excede o limite") {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if key != "" {
		payload, _ := json.Marshal(j)
		if err := s.cache.Store(r.Context(), key, requestHash, string(payload)); err != nil {
			if errors.Is(err, idempotency.ErrConflict) {
				writeError(w, http.StatusConflict, "chave de idempotência reutilizada com um corpo diferente")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, job.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	err := s.runner.Cancel(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, job.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "job already completed")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": string(job.StatusCancelled)})
	}
}

// jobResult loads the job and its result, translating state into HTTP status.
func (s *Server) jobResult(w http.ResponseWriter, r *http.Request) (*job.Job, *analysis.Result, bool) {
	id := chi.URLParam(r, "id")
	j, err := s.jobs.Get(r.Context(), id)
	if errors.Is(err, job.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return nil, nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}
	if j.Status != job.StatusCompleted {
		writeError(w, http.StatusConflict, "job is "+string(j.Status)+", result only available when completed")
		return nil, nil, false
	}

	result, err := s.jobs.Result(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}
	return j, result, true
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	_, result, ok := s.jobResult(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	j, result, ok := s.jobResult(w, r)
	if !ok {
		return
	}
	page, err := report.HTML(result, j.DocumentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.jobs.Get(r.Context(), id); errors.Is(err, job.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries, err := s.auditStore.ForJob(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleNorms reports knowledge-base coverage: which norms have full text on
// disk and which only resolve to catalog summaries.
func (s *Server) handleNorms(w http.ResponseWriter, r *http.Request) {
	local, err := s.norms.Available()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if local == nil {
		local = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"local":   local,
		"catalog": kb.CatalogCodes(),
	})
}
