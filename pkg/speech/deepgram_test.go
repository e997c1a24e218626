package speech_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-callbot/pkg/speech"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type fakeDeepgram struct {
	t        *testing.T
	upgrader websocket.Upgrader
	query    chan map[string]string
	audio    chan int
	replies  []any
}

func (f *fakeDeepgram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Token dg-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	f.query <- q

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	total := 0
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt == websocket.BinaryMessage {
			total += len(data)
			continue
		}
		if bytes.Contains(data, []byte("CloseStream")) {
			break
		}
	}
	f.audio <- total

	for _, reply := range f.replies {
		_ = conn.WriteJSON(reply)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_, _, _ = conn.ReadMessage()
}

func finalResult(text string, speechFinal bool) map[string]any {
	return map[string]any{
		"type":         "Results",
		"is_final":     true,
		"speech_final": speechFinal,
		"channel": map[string]any{
			"alternatives": []map[string]any{{"transcript": text, "confidence": 0.97}},
		},
	}
}

func newFake(t *testing.T, replies ...any) (*fakeDeepgram, *httptest.Server) {
	f := &fakeDeepgram{
		t:       t,
		query:   make(chan map[string]string, 1),
		audio:   make(chan int, 1),
		replies: replies,
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func startDeepgram(t *testing.T, srv *httptest.Server, key string, source speech.AudioSource) (speech.Recognition, error) {
	t.Helper()
	rec, err := speech.NewDeepgram(speech.DeepgramConfig{
		APIKey: key,
		URL:    wsURL(srv),
		Source: source,
	})
	if err != nil {
		t.Fatalf("NewDeepgram: %v", err)
	}
	return rec.Start(context.Background(), speech.DefaultOptions("en-US"))
}

func TestDeepgramTranscript(t *testing.T) {
	f, srv := newFake(t,
		finalResult("What are", false),
		finalResult("Tanishk's skills?", true),
	)

	pcm := bytes.Repeat([]byte{0, 1}, 8000)
	r, err := startDeepgram(t, srv, "dg-key", speech.ReaderSource{R: bytes.NewReader(pcm)})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	q := <-f.query
	if q["interim_results"] != "false" || q["alternatives"] != "1" || q["language"] != "en-US" {
		t.Errorf("unexpected query %v", q)
	}
	if q["encoding"] != "linear16" || q["sample_rate"] != "16000" {
		t.Errorf("unexpected audio params %v", q)
	}

	select {
	case res := <-r.Results():
		if res.Transcript != "What are Tanishk's skills?" || !res.Final {
			t.Errorf("unexpected result %+v", res)
		}
	case err := <-r.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	if got := <-f.audio; got != len(pcm) {
		t.Errorf("server received %d bytes, want %d", got, len(pcm))
	}

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed")
	}
}

func TestDeepgramNoSpeech(t *testing.T) {
	_, srv := newFake(t, finalResult("", true))

	r, err := startDeepgram(t, srv, "dg-key", speech.ReaderSource{R: bytes.NewReader(make([]byte, 3200))})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case err := <-r.Errors():
		if !errors.Is(err, speech.ErrNoSpeech) {
			t.Errorf("expected ErrNoSpeech, got %v", err)
		}
	case res := <-r.Results():
		t.Fatalf("unexpected result %+v", res)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestDeepgramUnauthorized(t *testing.T) {
	_, srv := newFake(t)

	_, err := startDeepgram(t, srv, "wrong", speech.ReaderSource{R: bytes.NewReader(nil)})
	if !errors.Is(err, speech.ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
	if speech.Classify(err) != speech.KindNotAllowed {
		t.Error("expected not-allowed classification")
	}
}

func TestDeepgramStop(t *testing.T) {
	_, srv := newFake(t)

	pr, pw := io.Pipe()
	defer pw.Close()

	r, err := startDeepgram(t, srv, "dg-key", speech.ReaderSource{R: pr})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after Stop")
	}
}

func TestNewDeepgramValidation(t *testing.T) {
	if _, err := speech.NewDeepgram(speech.DeepgramConfig{Source: speech.ReaderSource{}}); !errors.Is(err, speech.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
	if _, err := speech.NewDeepgram(speech.DeepgramConfig{APIKey: "k"}); err == nil {
		t.Error("expected error without source")
	}
}
