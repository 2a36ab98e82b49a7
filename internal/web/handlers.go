package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ginjaninja78/diamond-metrics/internal/engine"
	"github.com/ginjaninja78/diamond-metrics/internal/logging"
	"github.com/ginjaninja78/diamond-metrics/internal/session"
	"github.com/ginjaninja78/diamond-metrics/internal/xlsxgrid"
	"github.com/ginjaninja78/diamond-metrics/pkg/utils"
)

// multipartOverhead allows for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

// firstGridRow is the sheet row of the first data row in the browser grid,
// which has no header row of its own.
const firstGridRow = 1

// SessionResponse is returned by every session endpoint.
type SessionResponse struct {
	ID       string          `json:"id"`
	FileName string          `json:"file_name"`
	Stats    session.Stats   `json:"stats"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// RowsRequest is the body of the insert and remove endpoints.
type RowsRequest struct {
	Index int          `json:"index"`
	Count int          `json:"count"`
	Rows  []engine.Row `json:"rows,omitempty"`
}

// ReloadRequest is the optional body of the reload endpoint.
type ReloadRequest struct {
	Rows []engine.Row `json:"rows"`
}

// EditRequest is the body of the cell edit endpoint.
type EditRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func sessionResponse(s *session.Session, state engine.State) SessionResponse {
	return SessionResponse{
		ID:       s.ID,
		FileName: s.FileName,
		Stats:    s.Stats,
		Snapshot: engine.Render(state, firstGridRow),
	}
}

// decodeJSON decodes an optional JSON body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, engine.Columns())
}

// handleUpload ingests a multipart export upload into a new session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Server.MaxUploadBytes
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("%w: %v", session.ErrFileTooLarge, err))
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", session.ErrNoFile, err))
		return
	}
	defer file.Close()

	sess, err := s.sessions.Create(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "session_id", sess.ID, "file", header.Filename).
		Info("upload parsed", "rows", sess.Stats.RecordsParsed, "unmatched", sess.Stats.Unmatched)

	writeJSON(w, http.StatusCreated, sessionResponse(sess, sess.State()))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess, sess.State()))
}

// handleReset discards the session and its rows.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyEvent runs ev against the session and writes the new snapshot.
func (s *Server) applyEvent(w http.ResponseWriter, r *http.Request, sess *session.Session, ev engine.Event) {
	state, err := sess.Apply(ev)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "session_id", sess.ID).
		Debug("grid event", "event", engine.EventName(ev), "rows", len(state.Rows))

	writeJSON(w, http.StatusOK, sessionResponse(sess, state))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req ReloadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	s.applyEvent(w, r, sess, engine.Reload{Rows: req.Rows})
}

func (s *Server) handleInsertRows(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req RowsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	s.applyEvent(w, r, sess, engine.InsertRows{Index: req.Index, Count: req.Count, Rows: req.Rows})
}

func (s *Server) handleRemoveRows(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req RowsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	s.applyEvent(w, r, sess, engine.RemoveRows{Index: req.Index, Count: req.Count})
}

func (s *Server) handleEditCell(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: row %q", engine.ErrRowRange, chi.URLParam(r, "row")))
		return
	}

	var req EditRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	s.applyEvent(w, r, sess, engine.EditCell{Row: row, Field: req.Field, Value: req.Value})
}

// handleExport streams the session as an XLSX workbook with live formulas.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	f, err := xlsxgrid.Build(sess.State(), xlsxgrid.DefaultGenerateOptions())
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer f.Close()

	name := utils.GenerateOutputFileName(s.cfg.Output.NameFormat, map[string]string{
		"name": utils.BaseName(sess.FileName),
	})

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := f.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("export write failed", "session_id", sess.ID, "error", err)
	}
}
