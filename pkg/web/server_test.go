package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/teslashibe/go-callbot/internal/log"
	"github.com/teslashibe/go-callbot/pkg/call"
	"github.com/teslashibe/go-callbot/pkg/metrics"
)

type fakeController struct {
	mu        sync.Mutex
	snap      call.Snapshot
	listenErr error
	endText   string
	endErr    error
	toggles   int
	ends      int
}

func (f *fakeController) StartListening() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listenErr != nil {
		return f.listenErr
	}
	f.snap.State = call.StateListening
	f.snap.Listening = true
	return nil
}

func (f *fakeController) ToggleSpeaker() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	if f.snap.SpeakerBanner == "" {
		f.snap.SpeakerBanner = call.MsgSpeakerOn
	} else {
		f.snap.SpeakerBanner = ""
	}
	return nil
}

func (f *fakeController) End() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends++
	if f.endErr != nil {
		return "", f.endErr
	}
	f.snap.Ended = true
	f.snap.State = call.StateEnded
	f.endErr = call.ErrSessionEnded
	return f.endText, nil
}

func (f *fakeController) Snapshot() call.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func newTestServer(ctrl Controller, opts ...Option) *Server {
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	return NewServer(":0", ctrl, opts...)
}

func do(t *testing.T, s *Server, method, path string) (*http.Response, string) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, path, nil))
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, string(body)
}

func TestStatus(t *testing.T) {
	ctrl := &fakeController{snap: call.Snapshot{SessionID: "abc", State: call.StateIdle, Elapsed: "00:12"}}
	s := newTestServer(ctrl)

	resp, body := do(t, s, http.MethodGet, "/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var snap map[string]any
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap["state"] != "idle" || snap["elapsed"] != "00:12" || snap["sessionId"] != "abc" {
		t.Errorf("unexpected snapshot %s", body)
	}
}

func TestMic(t *testing.T) {
	t.Run("starts listening", func(t *testing.T) {
		ctrl := &fakeController{}
		s := newTestServer(ctrl)
		resp, body := do(t, s, http.MethodPost, "/api/mic")
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, `"listening":true`) {
			t.Errorf("unexpected body %s", body)
		}
	})

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"already listening", call.ErrAlreadyListening, http.StatusConflict},
		{"reply pending", call.ErrBusy, http.StatusConflict},
		{"ended", call.ErrSessionEnded, http.StatusGone},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeController{listenErr: tt.err})
			resp, body := do(t, s, http.MethodPost, "/api/mic")
			if resp.StatusCode != tt.code {
				t.Errorf("expected %d, got %d", tt.code, resp.StatusCode)
			}
			if !strings.Contains(body, tt.err.Error()) {
				t.Errorf("expected error in body, got %s", body)
			}
		})
	}
}

func TestSpeaker(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(ctrl)

	_, body := do(t, s, http.MethodPost, "/api/speaker")
	if !strings.Contains(body, call.MsgSpeakerOn) {
		t.Errorf("expected banner, got %s", body)
	}
	_, body = do(t, s, http.MethodPost, "/api/speaker")
	if strings.Contains(body, call.MsgSpeakerOn) {
		t.Errorf("expected banner hidden, got %s", body)
	}
	if ctrl.toggles != 2 {
		t.Errorf("expected 2 toggles, got %d", ctrl.toggles)
	}
}

func TestEnd(t *testing.T) {
	ctrl := &fakeController{endText: "01:05"}
	s := newTestServer(ctrl)

	resp, body := do(t, s, http.MethodPost, "/api/end")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var end EndResponse
	if err := json.Unmarshal([]byte(body), &end); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if end.Time != "01:05" {
		t.Errorf("expected time 01:05, got %q", end.Time)
	}
	if end.Redirect != "/thankyou?time=01%3A05" {
		t.Errorf("unexpected redirect %q", end.Redirect)
	}

	t.Run("second end is gone", func(t *testing.T) {
		resp, _ := do(t, s, http.MethodPost, "/api/end")
		if resp.StatusCode != http.StatusGone {
			t.Errorf("expected 410, got %d", resp.StatusCode)
		}
	})
}

func TestPages(t *testing.T) {
	s := newTestServer(&fakeController{})

	t.Run("index", func(t *testing.T) {
		resp, body := do(t, s, http.MethodGet, "/")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, `id="mic"`) {
			t.Error("index is missing the mic control")
		}
	})

	t.Run("thank you shows time", func(t *testing.T) {
		_, body := do(t, s, http.MethodGet, ThankYouURL("01:05"))
		if !strings.Contains(body, "01:05") {
			t.Errorf("expected duration in page, got %s", body)
		}
	})

	t.Run("thank you escapes time", func(t *testing.T) {
		_, body := do(t, s, http.MethodGet, ThankYouURL("<script>"))
		if strings.Contains(body, "<script>") {
			t.Error("time was not escaped")
		}
	})

	t.Run("static assets", func(t *testing.T) {
		resp, body := do(t, s, http.MethodGet, "/static/call.js")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "/ws/status") {
			t.Error("unexpected script contents")
		}
	})

	t.Run("websocket requires upgrade", func(t *testing.T) {
		resp, _ := do(t, s, http.MethodGet, "/ws/status")
		if resp.StatusCode != http.StatusUpgradeRequired {
			t.Errorf("expected 426, got %d", resp.StatusCode)
		}
	})

	t.Run("healthz", func(t *testing.T) {
		resp, body := do(t, s, http.MethodGet, "/healthz")
		if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
			t.Errorf("unexpected health response %d %s", resp.StatusCode, body)
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	t.Run("served when configured", func(t *testing.T) {
		m := metrics.New()
		m.RecordTurn()
		s := newTestServer(&fakeController{}, WithMetrics(m))
		resp, body := do(t, s, http.MethodGet, "/metrics")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(body, "callbot_turns_total 1") {
			t.Errorf("turn counter missing from output")
		}
	})

	t.Run("absent otherwise", func(t *testing.T) {
		s := newTestServer(&fakeController{})
		resp, _ := do(t, s, http.MethodGet, "/metrics")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}
