package analyser

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/blob"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/adapters/stream"
)

// ErrInvalidBlobName is returned for upload names that are empty or carry
// a path.
var ErrInvalidBlobName = blob.ErrInvalidName

const maxUploadBytes = 2 << 30

// registerJobRoutes exposes uploads, job submission, progress, sessions
// and rendered charts next to /metrics.
//
//	PUT  /uploads/{name}        store a log, notes or video file
//	GET  /uploads/{name}        read a stored file back
//	POST /jobs                  submit a Job as JSON, answers 202 with its id
//	GET  /jobs/{id}             latest progress of a job
//	GET  /sessions?user=u       list a user's sessions, newest first
//	GET  /sessions/{id}?user=u  one session, 404 unless u owns it
//	GET  /plots/{session}/{f}   a rendered chart
func (r *Runtime) registerJobRoutes(mux *http.ServeMux) {
	mux.HandleFunc("PUT /uploads/{name}", r.handleUpload)
	mux.HandleFunc("GET /uploads/{name}", r.handleDownload)
	mux.HandleFunc("POST /jobs", r.handleSubmit)
	mux.HandleFunc("GET /jobs/{id}", r.handleProgress)
	mux.HandleFunc("GET /sessions", r.handleSessions)
	mux.HandleFunc("GET /sessions/{id}", r.handleSession)
	mux.Handle("GET /plots/", http.StripPrefix("/plots/", filesOnly(http.Dir(r.cfg.Storage.PlotDir))))
}

func (r *Runtime) handleUpload(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	n, err := r.blobs.Put(name, http.MaxBytesReader(w, req.Body, maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, ErrInvalidBlobName):
			writeError(w, http.StatusBadRequest, err)
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err)
		default:
			r.obs.LogError("upload_failed", err, Field{Key: "name", Value: name})
			writeError(w, http.StatusInternalServerError, errors.New("upload failed"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"name": name, "bytes": n})
}

func (r *Runtime) handleDownload(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	rc, err := r.blobs.Open(name)
	switch {
	case errors.Is(err, ErrInvalidBlobName):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusNotFound, errors.New("no such upload"))
		return
	case err != nil:
		r.obs.LogError("download_failed", err, Field{Key: "name", Value: name})
		writeError(w, http.StatusInternalServerError, errors.New("download failed"))
		return
	}
	defer rc.Close()

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (r *Runtime) handleSubmit(w http.ResponseWriter, req *http.Request) {
	var j Job
	if err := json.NewDecoder(req.Body).Decode(&j); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !stream.Supported(j.LogFile) {
		writeError(w, http.StatusBadRequest, ErrUnsupportedFormat)
		return
	}
	id, err := r.Submit(&j)
	switch {
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrWALFull):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, ErrRuntimeClosed):
		writeError(w, http.StatusServiceUnavailable, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
	}
}

func (r *Runtime) handleProgress(w http.ResponseWriter, req *http.Request) {
	p, ok := r.JobProgress(req.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown job"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (r *Runtime) handleSessions(w http.ResponseWriter, req *http.Request) {
	user := req.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, errors.New("user is required"))
		return
	}
	list, err := r.Sessions(req.Context(), user)
	if err != nil {
		writeError(w, sessionErrorStatus(err), err)
		return
	}
	if list == nil {
		list = []Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (r *Runtime) handleSession(w http.ResponseWriter, req *http.Request) {
	user := req.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, errors.New("user is required"))
		return
	}
	s, err := r.Session(req.Context(), req.PathValue("id"), user)
	if err != nil {
		writeError(w, sessionErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoSessionStore):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// filesOnly serves regular files from root and answers 404 for
// directories, so session ids cannot be listed.
func filesOnly(root http.FileSystem) http.Handler {
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "" || strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		f, err := root.Open(req.URL.Path)
		if err != nil {
			http.NotFound(w, req)
			return
		}
		info, err := f.Stat()
		f.Close()
		if err != nil || info.IsDir() {
			http.NotFound(w, req)
			return
		}
		files.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
