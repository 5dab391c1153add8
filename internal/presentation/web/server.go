package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-claude-transcripts/internal/annotation"
	"github.com/penwyp/go-claude-transcripts/internal/data/archive"
	"github.com/penwyp/go-claude-transcripts/internal/util"
)

const maxDocumentBytes = 16 << 20

// Server serves a generated output directory. With an archive attached it
// also exposes the stored annotation documents under /api/annotations.
type Server struct {
	router  *http.ServeMux
	dir     string
	archive archive.KV
}

func NewServer(dir string, kv archive.KV) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		dir:     dir,
		archive: kv,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if s.archive != nil {
		s.router.HandleFunc("GET /api/annotations", s.handleListStores)
		s.router.HandleFunc("GET /api/annotations/{key}", s.handleGetStore)
		s.router.HandleFunc("PUT /api/annotations/{key}", s.handlePutStore)
	}

	s.router.Handle("GET /", noCache(http.FileServer(http.Dir(s.dir))))
}

// noCache keeps browsers from holding on to pages a --watch run rewrites.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	keys, err := s.archive.Keys()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	data, err := s.archive.Get(r.PathValue("key"))
	if annotation.IsNotFound(err) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handlePutStore(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rt := annotation.NewRuntime(annotation.NewStore(key), s.archive, nil)
	report, err := rt.Import(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if rt.Notice != "" {
		http.Error(w, rt.Notice, http.StatusInternalServerError)
		return
	}
	util.LogDebug(fmt.Sprintf("Stored %d annotations under %s", report.Imported, key))
	writeJSON(w, http.StatusOK, map[string]int{"imported": report.Imported, "skipped": report.Skipped})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	util.LogInfo(fmt.Sprintf("Serving %s at http://%s", s.dir, addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			util.LogError(fmt.Sprintf("Server shutdown error: %v", err))
		}
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
