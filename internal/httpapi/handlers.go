package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"repdir-backend/internal/directory"
	"repdir-backend/internal/model"
	"repdir-backend/internal/rejections"
)

const (
	msgInternal       = "Internal server error"
	msgInvalidJSON    = "Invalid JSON body"
	msgBodyTooLarge   = "Request body too large"
	msgRouteNotFound  = "Route not found"
	maxBodyBytes      = 1 << 20
	defaultSuggestMax = 10
	suggestLimitCap   = 50
	defaultStatsTTL   = 30 * time.Second
)

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeMessage(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

// writeStoreError maps a store outcome to a status code. Rejected writes
// are recorded before responding.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, scope string, err error, locality, name string) {
	switch {
	case errors.Is(err, directory.ErrValidation), errors.Is(err, directory.ErrConflict):
		msg := directory.Message(err)
		rej := rejections.Rejection{Scope: scope, Reason: msg, Locality: locality, Name: name}
		if rerr := s.rejects.Record(r.Context(), rej); rerr != nil {
			s.logger.Warn("rejection not recorded", zap.Error(rerr))
		}
		writeMessage(w, http.StatusBadRequest, msg)
	case errors.Is(err, directory.ErrNotFound):
		writeMessage(w, http.StatusNotFound, directory.Message(err))
	default:
		s.logger.Error("request failed", zap.String("scope", scope), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "API is running"})
}

// listHandler returns the whole directory, or the filtered view when a
// search or designation parameter is present.
func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dir := s.dir.ListAll()
	if q.Has("search") || q.Has("designation") {
		dir = directory.Filter(dir, directory.Query{
			Search:       q.Get("search"),
			Designations: q["designation"],
		})
	}
	writeJSON(w, http.StatusOK, dir)
}

func (s *Server) localityHandler(w http.ResponseWriter, r *http.Request) {
	reps, err := s.dir.ListByLocality(mux.Vars(r)["locality"])
	if err != nil {
		s.writeStoreError(w, r, "lookup", err, mux.Vars(r)["locality"], "")
		return
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *Server) addHandler(w http.ResponseWriter, r *http.Request) {
	var req model.AddRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.dir.Add(r.Context(), req.Locality, req.Representative()); err != nil {
		s.writeStoreError(w, r, "add", err, req.Locality, req.Name)
		return
	}
	s.stats.Flush()
	writeMessage(w, http.StatusOK, "Representative added successfully")
}

func (s *Server) updateHandler(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := directory.Identifier{Locality: req.Locality, Name: req.OriginalName}
	if err := s.dir.Update(r.Context(), id, req.Representative()); err != nil {
		s.writeStoreError(w, r, "update", err, req.Locality, req.OriginalName)
		return
	}
	s.stats.Flush()
	writeMessage(w, http.StatusOK, "Representative updated successfully")
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	var req model.DeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := directory.Identifier{Locality: req.Locality, Name: req.Name}
	if err := s.dir.Remove(r.Context(), id); err != nil {
		s.writeStoreError(w, r, "delete", err, req.Locality, req.Name)
		return
	}
	s.stats.Flush()
	writeMessage(w, http.StatusOK, "Representative deleted successfully")
}

// statsHandler caches stats under the generation they were computed from,
// so a result computed before a write is never served after it.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.stats.Get(statsKey(s.dir.Generation())); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}
	dir, gen := s.dir.Snapshot()
	st := directory.ComputeStats(dir)
	s.stats.Set(statsKey(gen), st, cache.DefaultExpiration)
	writeJSON(w, http.StatusOK, st)
}

func statsKey(gen uint64) string {
	return "stats:" + strconv.FormatUint(gen, 10)
}

func (s *Server) designationsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Designations())
}

func (s *Server) suggestionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultSuggestMax
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, suggestLimitCap)
		}
	}
	writeJSON(w, http.StatusOK, directory.Suggest(s.dir.ListAll(), r.URL.Query().Get("q"), limit))
}

func (s *Server) apiNotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, msgRouteNotFound)
}

// spaHandler serves dashboard assets, falling back to index.html so client
// routes resolve.
func (s *Server) spaHandler(w http.ResponseWriter, r *http.Request) {
	if s.staticDir == "" {
		writeMessage(w, http.StatusNotFound, msgRouteNotFound)
		return
	}
	p := filepath.Join(s.staticDir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
		http.ServeFile(w, r, p)
		return
	}
	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		writeMessage(w, http.StatusNotFound, msgRouteNotFound)
		return
	}
	http.ServeFile(w, r, index)
}
