// Package preview exposes a running session over HTTP: an MJPEG preview
// plus the start/stop/filter/snapshot commands.
package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"syscall"
	"time"

	streamingrtsp "github.com/Hugo-Victorr/Streaming-RTSP"
	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/Hugo-Victorr/Streaming-RTSP/imageprocessor"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"github.com/Hugo-Victorr/Streaming-RTSP/sink"
	"github.com/Hugo-Victorr/Streaming-RTSP/snapshot"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/xaionaro-go/observability"
)

const DefaultStreamURL = "rtsp://localhost:8554/stream"

// Session is the part of *streamingrtsp.Session the server drives.
type Session interface {
	Start(ctx context.Context, url string) error
	Stop(ctx context.Context)
	State() streamingrtsp.State
	URL() string
	Geometry() frame.Geometry
	Toggles() *imageprocessor.Toggles
	Stats() streamingrtsp.Stats
}

type Server struct {
	Session     Session
	Frames      *sink.Latest[*image.RGBA]
	Snapshots   *snapshot.Store
	DefaultURL  string
	JPEGQuality int

	mux *http.ServeMux
}

var _ http.Handler = (*Server)(nil)

func NewServer(
	session Session,
	frames *sink.Latest[*image.RGBA],
	snapshots *snapshot.Store,
) *Server {
	s := &Server{
		Session:     session,
		Frames:      frames,
		Snapshots:   snapshots,
		DefaultURL:  DefaultStreamURL,
		JPEGQuality: 80,
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /stream.mjpeg", s.handleStream)
	s.mux.HandleFunc("GET /frame.jpeg", s.handleFrame)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("POST /start", s.handleStart)
	s.mux.HandleFunc("POST /stop", s.handleStop)
	s.mux.HandleFunc("POST /filters/{name}", s.handleFilter)
	s.mux.HandleFunc("POST /snapshots", s.handleTakeSnapshot)
	s.mux.HandleFunc("GET /snapshots", s.handleListSnapshots)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) (_err error) {
	logger.Debugf(ctx, "ListenAndServe: %s", addr)
	defer func() { logger.Debugf(ctx, "/ListenAndServe: %s: %v", addr, _err) }()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen '%s': %w", addr, err)
	}
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	observability.Go(ctx, func(ctx context.Context) {
		<-ctx.Done()
		shutdownCtx, cancelFn := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancelFn()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf(ctx, "unable to shutdown the HTTP server: %v", err)
		}
	})
	logger.Infof(ctx, "preview is available at http://%s/stream.mjpeg", listener.Addr())
	err = httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(s.JPEGQuality)(&buf, img); err != nil {
		return nil, fmt.Errorf("unable to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mimeWriter := multipart.NewWriter(w)
	defer mimeWriter.Close()
	w.Header().Set("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", mimeWriter.Boundary()))

	partHeader := make(textproto.MIMEHeader, 1)
	partHeader.Add("Content-Type", "image/jpeg")

	var seq uint64
	for {
		img, nextSeq, err := s.Frames.Next(ctx, seq)
		if err != nil {
			return
		}
		seq = nextSeq

		jpg, err := s.encodeJPEG(img)
		if err != nil {
			logger.Errorf(ctx, "%v", err)
			continue
		}

		partWriter, err := mimeWriter.CreatePart(partHeader)
		if err != nil {
			logger.Debugf(ctx, "unable to create a multipart section: %v", err)
			return
		}
		if _, err := partWriter.Write(jpg); err != nil {
			if !errors.Is(err, syscall.EPIPE) {
				logger.Debugf(ctx, "unable to write a video frame: %v", err)
			}
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	img, seq := s.Frames.Load(r.Context())
	if seq == 0 || img == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	jpg, err := s.encodeJPEG(img)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(jpg)
}

type Status struct {
	State   string                   `json:"state"`
	URL     string                   `json:"url,omitempty"`
	Width   int                      `json:"width,omitempty"`
	Height  int                      `json:"height,omitempty"`
	Toggles imageprocessor.ToggleSet `json:"toggles"`
	Stats   streamingrtsp.Stats      `json:"stats"`
	Frames  sink.Stats               `json:"frames"`
}

func (s *Server) status() Status {
	g := s.Session.Geometry()
	return Status{
		State:   s.Session.State().String(),
		URL:     s.Session.URL(),
		Width:   g.Width,
		Height:  g.Height,
		Toggles: s.Session.Toggles().Snapshot(),
		Stats:   s.Session.Stats(),
		Frames:  s.Frames.Stats(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, s.status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	url := r.URL.Query().Get("url")
	if url == "" {
		url = s.DefaultURL
	}
	err := s.Session.Start(ctx, url)
	if err != nil {
		var (
			errTarget  streamingrtsp.ErrInvalidTarget
			errAlready streamingrtsp.ErrAlreadyStreaming
			errConn    streamingrtsp.ErrConnectionFailed
		)
		code := http.StatusInternalServerError
		switch {
		case errors.As(err, &errTarget):
			code = http.StatusBadRequest
		case errors.As(err, &errAlready):
			code = http.StatusConflict
		case errors.As(err, &errConn):
			code = http.StatusBadGateway
		}
		writeJSON(ctx, w, code, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(ctx, w, http.StatusOK, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.Session.Stop(r.Context())
	writeJSON(r.Context(), w, http.StatusOK, s.status())
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flag, err := s.Session.Toggles().ByName(r.PathValue("name"))
	if err != nil {
		writeJSON(ctx, w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid 'enabled' value: %v", err)})
		return
	}
	flag.Store(enabled)
	writeJSON(ctx, w, http.StatusOK, s.Session.Toggles().Snapshot())
}

func (s *Server) handleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	format, err := snapshot.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	img, seq := s.Frames.Load(ctx)
	if seq == 0 || img == nil {
		writeJSON(ctx, w, http.StatusConflict, map[string]string{"error": "no frame to save yet"})
		return
	}
	path, err := s.Snapshots.Save(img, format)
	if err != nil {
		writeJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	logger.Infof(ctx, "saved a snapshot to '%s'", path)
	writeJSON(ctx, w, http.StatusCreated, map[string]string{"path": path})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := s.Snapshots.List()
	if err != nil {
		writeJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if list == nil {
		list = []string{}
	}
	writeJSON(ctx, w, http.StatusOK, list)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debugf(ctx, "unable to write the response: %v", err)
	}
}
