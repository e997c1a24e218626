package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	deepgramListenURL = "wss://api.deepgram.com/v1/listen"
	deepgramModel     = "nova-2"

	// 100ms of 16kHz PCM16
	deepgramChunkSize = 3200
)

var deepgramCloseStream = []byte(`{"type":"CloseStream"}`)

// DeepgramConfig configures the Deepgram live recognizer.
type DeepgramConfig struct {
	APIKey string
	Model  string

	// URL overrides the live transcription endpoint.
	URL string

	// SampleRate of the PCM produced by Source. Default 16000.
	SampleRate int

	Source AudioSource

	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

// DeepgramRecognizer streams microphone audio to Deepgram's live
// transcription WebSocket and reports the first complete utterance.
type DeepgramRecognizer struct {
	cfg    DeepgramConfig
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewDeepgram creates a Deepgram recognizer.
func NewDeepgram(cfg DeepgramConfig) (*DeepgramRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Source == nil {
		return nil, errors.New("speech: deepgram requires an audio source")
	}
	if cfg.URL == "" {
		cfg.URL = deepgramListenURL
	}
	if cfg.Model == "" {
		cfg.Model = deepgramModel
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &DeepgramRecognizer{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: cfg.Logger.With("component", "speech.deepgram"),
	}, nil
}

type deepgramMessage struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// Start dials Deepgram and begins streaming audio from the source.
// A 401 or 403 handshake is reported as ErrNotAllowed.
func (d *DeepgramRecognizer) Start(ctx context.Context, opts Options) (Recognition, error) {
	wsURL, err := d.listenURL(opts)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.cfg.APIKey)

	conn, resp, err := d.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: deepgram rejected credentials (%d)", ErrNotAllowed, resp.StatusCode)
		}
		return nil, fmt.Errorf("speech: deepgram dial: %w", err)
	}

	s := newStream(ctx)
	audio, err := d.cfg.Source.Open(s.ctx)
	if err != nil {
		conn.Close()
		s.finish()
		return nil, err
	}

	d.logger.Debug("listening", "model", d.cfg.Model, "language", opts.Language)

	go d.pump(s, conn, audio)
	go d.receive(s, conn, audio, opts)
	return s, nil
}

func (d *DeepgramRecognizer) listenURL(opts Options) (string, error) {
	u, err := url.Parse(d.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("speech: invalid deepgram URL: %w", err)
	}

	q := u.Query()
	q.Set("model", d.cfg.Model)
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(d.cfg.SampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", strconv.FormatBool(opts.InterimResults))
	q.Set("alternatives", strconv.Itoa(max(opts.MaxAlternatives, 1)))
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("endpointing", "300")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// pump forwards audio until the source ends, then asks Deepgram to flush.
func (d *DeepgramRecognizer) pump(s *stream, conn *websocket.Conn, audio io.Reader) {
	buf := make([]byte, deepgramChunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if s.ctx.Err() == nil {
				_ = conn.WriteMessage(websocket.TextMessage, deepgramCloseStream)
			}
			return
		}
	}
}

// receive collects final transcript segments and emits them as one result
// at the end of speech or when the stream closes.
func (d *DeepgramRecognizer) receive(s *stream, conn *websocket.Conn, audio io.Closer, opts Options) {
	defer s.finish()
	defer audio.Close()
	defer conn.Close()

	go func() {
		<-s.ctx.Done()
		conn.Close()
	}()

	var parts []string
	var confidence float64
	flush := func() bool {
		if len(parts) == 0 {
			return false
		}
		s.emit(Result{Transcript: strings.Join(parts, " "), Confidence: confidence, Final: true})
		return true
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() != nil || flush() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.fail(ErrNoSpeech)
				return
			}
			s.fail(fmt.Errorf("speech: deepgram read: %w", err))
			return
		}

		var msg deepgramMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			d.logger.Debug("ignoring unparseable message", "error", err)
			continue
		}
		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		alt := msg.Channel.Alternatives[0]
		if !msg.IsFinal {
			if opts.InterimResults && alt.Transcript != "" {
				if !s.emit(Result{Transcript: alt.Transcript, Confidence: alt.Confidence}) {
					return
				}
			}
			continue
		}

		if alt.Transcript != "" {
			parts = append(parts, alt.Transcript)
			confidence = alt.Confidence
		}
		if msg.SpeechFinal && flush() {
			return
		}
	}
}

var _ Recognizer = (*DeepgramRecognizer)(nil)
