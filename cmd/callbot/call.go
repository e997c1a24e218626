package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-callbot/internal/config"
	"github.com/teslashibe/go-callbot/internal/httpc"
	"github.com/teslashibe/go-callbot/internal/log"
	"github.com/teslashibe/go-callbot/pkg/call"
	"github.com/teslashibe/go-callbot/pkg/chat"
	"github.com/teslashibe/go-callbot/pkg/elapsed"
	"github.com/teslashibe/go-callbot/pkg/metrics"
	"github.com/teslashibe/go-callbot/pkg/web"
)

// endLinger is how long the page stays up after the call ends.
const endLinger = 3 * time.Second

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Start a call and serve the call page",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runCall(ctx, cfg)
	},
}

func sessionConfig(cfg config.Config) call.Config {
	return call.Config{
		Greeting:         cfg.GreetingText,
		GreetingVoice:    call.Voice(cfg.GreetingVoice),
		ReplyVoice:       call.Voice(cfg.ReplyVoice),
		ListenLanguage:   cfg.ListenLanguage,
		ListenTimeout:    cfg.ListenTimeout,
		SpeakerBannerTTL: cfg.SpeakerBannerTTL,
		ErrorBannerTTL:   cfg.ErrorBannerTTL,
	}
}

func newChatClient(cfg config.Config) *chat.Client {
	return chat.New(cfg.ChatURL,
		chat.WithHTTPClient(httpc.NewClient(cfg.ChatTimeout)),
		chat.WithLogger(log.Component("chat")),
	)
}

func runCall(ctx context.Context, cfg config.Config) error {
	logger := log.L()

	synth, closeSynth, err := newSynthesizer(ctx, cfg, os.Stdout, logger)
	if err != nil {
		return fmt.Errorf("speech output: %w", err)
	}
	defer closeSynth()

	recognizer, err := newRecognizer(cfg, os.Stdin, os.Stdout, logger)
	if err != nil {
		return fmt.Errorf("speech input: %w", err)
	}

	// The counter belongs to this command; the session only starts and
	// resets it.
	timer := elapsed.New()
	m := metrics.New()

	session, err := call.New(sessionConfig(cfg), call.Deps{
		Synthesizer: synth,
		Recognizer:  recognizer,
		Chat:        newChatClient(cfg),
		Elapsed:     timer,
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	server := web.NewServer(cfg.HTTPAddr, session,
		web.WithLogger(logger),
		web.WithMetrics(m),
	)
	session.Observe(server.Publish)

	serveCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Run(serveCtx) }()

	if err := session.Start(ctx); err != nil {
		return err
	}

	select {
	case <-session.Done():
	case err := <-serveErr:
		session.End()
		session.Wait()
		return fmt.Errorf("dashboard: %w", err)
	}

	// Signal-driven shutdown ends the session through its context, so End
	// here usually reports that it already ran.
	if text, err := session.End(); err == nil {
		logger.Info("call ended", "time", text)
	} else if !errors.Is(err, call.ErrSessionEnded) {
		logger.Warn("end call", "error", err)
	}
	session.Wait()

	// Keep serving long enough for the page to load the thank-you view.
	select {
	case <-ctx.Done():
	case <-time.After(endLinger):
	}
	stopServer()
	if err := <-serveErr; err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
