package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-callbot/internal/config"
	"github.com/teslashibe/go-callbot/internal/log"
	"github.com/teslashibe/go-callbot/pkg/tts"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "Check the TTS provider and list its voices",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.TTSProvider == config.ProviderConsole {
			fmt.Fprintln(cmd.OutOrStdout(), "console output: no voices to list")
			return nil
		}

		provider, err := newProvider(cmd.Context(), cfg, log.Component("tts"))
		if err != nil {
			return err
		}
		defer provider.Close()

		return listVoices(cmd.Context(), cmd.OutOrStdout(), provider, cfg)
	},
}

func listVoices(ctx context.Context, w io.Writer, provider tts.Provider, cfg config.Config) error {
	if err := provider.Health(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	fmt.Fprintf(w, "✅ %s is reachable\n", cfg.TTSProvider)
	if cfg.TTSVoice != "" {
		fmt.Fprintf(w, "configured voice: %s\n", cfg.TTSVoice)
	}

	var listers []tts.VoiceLister
	if chain, ok := provider.(*tts.Chain); ok {
		for _, p := range chain.Providers() {
			if l, ok := p.(tts.VoiceLister); ok {
				listers = append(listers, l)
			}
		}
	} else if l, ok := provider.(tts.VoiceLister); ok {
		listers = append(listers, l)
	}

	for _, l := range listers {
		voices, err := l.Voices(ctx, cfg.GreetingVoice.Language)
		if err != nil {
			return fmt.Errorf("list voices: %w", err)
		}
		for _, v := range voices {
			fmt.Fprintf(w, "  %-28s %-8s %v\n", v.Name, v.Gender, v.Languages)
		}
	}
	return nil
}
