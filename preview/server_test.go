package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	streamingrtsp "github.com/Hugo-Victorr/Streaming-RTSP"
	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/Hugo-Victorr/Streaming-RTSP/imageprocessor"
	"github.com/Hugo-Victorr/Streaming-RTSP/sink"
	"github.com/Hugo-Victorr/Streaming-RTSP/snapshot"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	locker   sync.Mutex
	state    streamingrtsp.State
	url      string
	startErr error
	toggles  *imageprocessor.Toggles
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		state:   streamingrtsp.StateIdle,
		toggles: imageprocessor.NewToggles(imageprocessor.ToggleSet{}),
	}
}

func (s *fakeSession) Start(ctx context.Context, url string) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.state, s.url = streamingrtsp.StateStreaming, url
	return nil
}

func (s *fakeSession) Stop(ctx context.Context) {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.state = streamingrtsp.StateStopped
}

func (s *fakeSession) State() streamingrtsp.State {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.state
}

func (s *fakeSession) URL() string {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.url
}

func (s *fakeSession) Geometry() frame.Geometry {
	return frame.Geometry{Width: 64, Height: 48}
}

func (s *fakeSession) Toggles() *imageprocessor.Toggles {
	return s.toggles
}

func (s *fakeSession) Stats() streamingrtsp.Stats {
	return streamingrtsp.Stats{FramesDecoded: 7}
}

func newTestServer(t *testing.T) (*Server, *fakeSession) {
	session := newFakeSession()
	srv := NewServer(session, sink.NewLatest[*image.RGBA](), snapshot.NewStore(t.TempDir()))
	return srv, session
}

func do(t *testing.T, srv http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestStartStopStatus(t *testing.T) {
	srv, session := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/start")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, DefaultStreamURL, session.URL())

	rec = do(t, srv, http.MethodPost, "/start?url="+"rtsp://camera:554/live")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "rtsp://camera:554/live", session.URL())

	rec = do(t, srv, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "streaming", status.State)
	require.Equal(t, 64, status.Width)
	require.Equal(t, 48, status.Height)
	require.EqualValues(t, 7, status.Stats.FramesDecoded)

	rec = do(t, srv, http.MethodPost, "/stop")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, streamingrtsp.StateStopped, session.State())

	rec = do(t, srv, http.MethodGet, "/stop")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartErrorCodes(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{
		{streamingrtsp.ErrInvalidTarget{URL: "x", Reason: "bad"}, http.StatusBadRequest},
		{streamingrtsp.ErrAlreadyStreaming{URL: "x", State: streamingrtsp.StateStreaming}, http.StatusConflict},
		{streamingrtsp.ErrConnectionFailed{URL: "x", Err: fmt.Errorf("refused")}, http.StatusBadGateway},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	} {
		t.Run(fmt.Sprintf("%d", tc.code), func(t *testing.T) {
			srv, session := newTestServer(t)
			session.startErr = tc.err
			rec := do(t, srv, http.MethodPost, "/start?url=x")
			require.Equal(t, tc.code, rec.Code)
			require.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestFilters(t *testing.T) {
	srv, session := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/filters/blur?enabled=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, session.Toggles().Blur.Load())

	rec = do(t, srv, http.MethodPost, "/filters/detect-faces?enabled=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, imageprocessor.ToggleSet{Blur: true, DetectFaces: true}, session.Toggles().Snapshot())

	rec = do(t, srv, http.MethodPost, "/filters/blur?enabled=false")
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, session.Toggles().Blur.Load())

	rec = do(t, srv, http.MethodPost, "/filters/emboss?enabled=true")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/filters/sharpen?enabled=maybe")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, session.Toggles().Sharpen.Load())
}

func TestFrameAndSnapshots(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/frame.jpeg")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(t, srv, http.MethodPost, "/snapshots")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodGet, "/snapshots")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	srv.Frames.Publish(ctx, image.NewRGBA(image.Rect(0, 0, 32, 16)))

	rec = do(t, srv, http.MethodGet, "/frame.jpeg")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	img, err := jpeg.Decode(rec.Body)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())

	rec = do(t, srv, http.MethodPost, "/snapshots?format=tiff")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/snapshots?format=jpeg")
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.True(t, strings.HasSuffix(saved["path"], ".jpeg"), saved["path"])

	rec = do(t, srv, http.MethodGet, "/snapshots")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, []string{saved["path"]}, list)
}

func TestMJPEGStream(t *testing.T) {
	ctx, cancelFn := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFn()
	srv, _ := newTestServer(t)
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	srv.Frames.Publish(ctx, image.NewRGBA(image.Rect(0, 0, 20, 10)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpSrv.URL+"/stream.mjpeg", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/x-mixed-replace", mediaType)

	reader := multipart.NewReader(resp.Body, params["boundary"])
	part, err := reader.NextPart()
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))

	// the end of a part is only visible once the next one starts
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.Frames.Publish(ctx, image.NewRGBA(image.Rect(0, 0, 40, 30)))
			}
		}
	}()
	img, err := jpeg.Decode(part)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())

	part, err = reader.NextPart()
	require.NoError(t, err)
	img, err = jpeg.Decode(part)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
}
