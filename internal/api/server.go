package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"learncards/internal/config"
	"learncards/internal/document"
	"learncards/internal/logger"
	"learncards/internal/models"
	"learncards/internal/pipeline"
	"learncards/internal/providers"
	"learncards/internal/tasks"
	"learncards/internal/util"

	"github.com/gorilla/websocket"
)

// CardGenerator is the synchronous text path of the gateway.
type CardGenerator interface {
	GenerateFromText(ctx context.Context, text string, count int) ([]models.Card, error)
}

type Deps struct {
	Config   config.Config
	Registry *tasks.Registry
	Gateway  CardGenerator
	Runner   pipeline.Runner
	Log      *logger.Logger
}

type Server struct {
	cfg      config.Config
	registry *tasks.Registry
	gateway  CardGenerator
	runner   pipeline.Runner
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewServer(d Deps) *Server {
	return &Server{
		cfg:      d.Config,
		registry: d.Registry,
		gateway:  d.Gateway,
		runner:   d.Runner,
		log:      logger.OrNop(d.Log).With("service", "API"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/generate-document", s.handleGenerateDocument)
	mux.HandleFunc("POST /api/upload-video", s.handleUploadVideo)
	mux.HandleFunc("GET /api/task/{id}", s.handleTask)
	mux.HandleFunc("GET /api/task/{id}/watch", s.handleTaskWatch)
	if s.cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	counts := map[models.TaskStatus]int{}
	for _, t := range s.registry.List() {
		counts[t.Status]++
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tasks": counts})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Count int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("No text provided: %w", util.ErrValidation))
		return
	}
	s.generate(w, r, text, req.Count)
}

func (s *Server) handleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("No document uploaded: %w", util.ErrValidation))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("read document: %w", err))
		return
	}
	text, err := document.ExtractText(header.Filename, data)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	s.generate(w, r, text, formInt(r, "count"))
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, text string, count int) {
	text = util.TruncateRunes(text, s.cfg.MaxSourceRunes)
	cards, err := s.gateway.GenerateFromText(r.Context(), text, count)
	var perr *providers.ParseError
	if errors.As(err, &perr) {
		s.log.Warn("model reply was not a card array", "raw_len", len(perr.Raw))
		writeJSON(w, http.StatusOK, map[string]any{"text": perr.Raw})
		return
	}
	if err != nil {
		s.log.Error("generate cards failed", "error", err)
		writeErr(w, statusFor(err), err)
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("No video file uploaded: %w", util.ErrValidation))
		return
	}
	defer file.Close()

	task := s.registry.Create()
	videoPath, err := s.saveUpload(task.ID, header, file)
	if err != nil {
		_ = s.registry.Fail(r.Context(), task.ID, err)
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	job := pipeline.Job{TaskID: task.ID, VideoPath: videoPath, Count: formInt(r, "count")}
	if job.Count <= 0 {
		job.Count = s.cfg.DefaultCardCount
	}
	if err := s.runner.Submit(r.Context(), job); err != nil {
		_ = s.registry.Fail(r.Context(), task.ID, err)
		_ = util.RemoveFiles(videoPath)
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("video task queued", "task_id", task.ID, "file", header.Filename, "size", header.Size, "count", job.Count)
	writeJSON(w, http.StatusOK, map[string]any{"taskId": task.ID})
}

// saveUpload stores the upload as <taskID><ext> so frame names derived from
// it never collide across tasks.
func (s *Server) saveUpload(taskID string, header *multipart.FileHeader, src multipart.File) (string, error) {
	if err := util.EnsureDir(s.cfg.UploadDir); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" || len(ext) > 6 || strings.ContainsAny(ext, `/\`) {
		ext = ".mp4"
	}
	dst := util.SafeJoin(s.cfg.UploadDir, taskID+ext)
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return dst, nil
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.registry.Lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleTaskWatch pushes a task snapshot whenever it changes and closes the
// socket once the task is terminal.
func (s *Server) handleTaskWatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := s.registry.Lookup(r.Context(), id)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "task_id", id, "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	interval := s.cfg.PollInterval / 4
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last time.Time
	for {
		if !task.UpdatedAt.Equal(last) {
			last = task.UpdatedAt
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(task); err != nil {
				return
			}
		}
		if task.Status.Terminal() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(task.Status))
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
		if task, err = s.registry.Lookup(r.Context(), id); err != nil {
			return
		}
	}
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = 200
	}
	return int64(mb) << 20
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0
	}
	return n
}
