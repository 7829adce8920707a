package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Chunn241529/FourT-sub001/pkg/engine"
	"github.com/Chunn241529/FourT-sub001/pkg/keymap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type nopController struct{}

func (nopController) PressKey(key string, mod keymap.Modifier) error   { return nil }
func (nopController) ReleaseKey(key string, mod keymap.Modifier) error { return nil }

func newTestServer() (*Server, *engine.Engine) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(nopController{}, log)
	return NewServer(eng, log), eng
}

// midiFile builds a single-note file whose note-off lands at lastTick.
func midiFile(t *testing.T, lastTick uint32) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	var track smf.Track
	track.Add(0, smf.Message(midi.NoteOn(0, 60, 100)))
	track.Add(lastTick, smf.Message(midi.NoteOff(0, 60)))
	track.Close(0)
	if err := s.Add(track); err != nil {
		t.Fatalf("failed to add track: %v", err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("failed to write midi: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, target string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "song.mid")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func formRequest(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer()
	r := srv.Router()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", body["status"])
	}
}

func TestPreprocessEndpoint(t *testing.T) {
	srv, _ := newTestServer()
	r := srv.Router()

	req := uploadRequest(t, "/api/v1/preprocess", midiFile(t, 480), map[string]string{
		"auto_transpose": "false",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var res struct {
		Events []struct {
			Time   float64 `json:"time"`
			Action string  `json:"action"`
			Key    string  `json:"key"`
		} `json:"events"`
		Duration float64 `json:"total_duration"`
		Debug    struct {
			EstimatedKey string `json:"estimated_key"`
		} `json:"debug_info"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(res.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(res.Events))
	}
	if res.Events[0].Key != "a" || res.Events[0].Action != "press" {
		t.Errorf("first event = %+v, want press of a", res.Events[0])
	}
	if res.Debug.EstimatedKey != "C Major" {
		t.Errorf("estimated key = %q, want C Major", res.Debug.EstimatedKey)
	}
}

func TestPreprocessRequiresFile(t *testing.T) {
	srv, _ := newTestServer()
	r := srv.Router()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/preprocess", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPlayStatusStop(t *testing.T) {
	srv, eng := newTestServer()
	r := srv.Router()

	// A song long enough to still be playing when status is queried.
	req := uploadRequest(t, "/api/v1/play", midiFile(t, 480*240), map[string]string{
		"auto_transpose": "false",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("play status = %d: %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	var status struct {
		Playing  bool   `json:"playing"`
		HandMode string `json:"hand_mode"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !status.Playing {
		t.Error("status should report playing")
	}
	if status.HandMode != "both" {
		t.Errorf("hand mode = %q, want both", status.HandMode)
	}

	req = uploadRequest(t, "/api/v1/play", midiFile(t, 480), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("second play status = %d, want 409", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stop", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for eng.IsActive() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if eng.IsActive() {
		t.Error("engine still active after stop")
	}
}

func TestSpeedEndpoint(t *testing.T) {
	srv, eng := newTestServer()
	r := srv.Router()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, formRequest("/api/v1/speed", "speed=2.5"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := eng.Speed(); got != 2.5 {
		t.Errorf("engine speed = %v, want 2.5", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, formRequest("/api/v1/speed", "speed=-1"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative speed status = %d, want 400", rec.Code)
	}
}

func TestHandModeEndpoint(t *testing.T) {
	srv, eng := newTestServer()
	r := srv.Router()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, formRequest("/api/v1/handmode", "mode=left"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := eng.HandMode(); got != engine.HandLeft {
		t.Errorf("hand mode = %v, want left", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, formRequest("/api/v1/handmode", "mode=sideways"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode status = %d, want 400", rec.Code)
	}
}

func TestLoopEndpoint(t *testing.T) {
	srv, eng := newTestServer()
	r := srv.Router()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, formRequest("/api/v1/loop", "enabled=true"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if !eng.Loop() {
		t.Error("loop should be enabled")
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	srv, _ := newTestServer()
	r := srv.Router()

	req := uploadRequest(t, "/api/v1/sanitize", midiFile(t, 480), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Repaired-Events"); got != "0" {
		t.Errorf("X-Repaired-Events = %q, want 0 for a valid file", got)
	}

	req = uploadRequest(t, "/api/v1/sanitize", []byte("this is not midi"), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("garbage input status = %d, want 400", rec.Code)
	}
}
