// callbot runs a voice call against a portfolio chat backend: it greets
// the caller, listens for one question at a time, and speaks the reply,
// with a small web page for the call controls.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teslashibe/go-callbot/internal/config"
	"github.com/teslashibe/go-callbot/internal/log"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "callbot",
	Short:         "Voice call front end for the portfolio chat backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.Bind(v)

	flags := rootCmd.PersistentFlags()
	flags.String("chat-url", config.DefaultChatURL, "Chat backend endpoint")
	flags.Duration("chat-timeout", config.DefaultChatTimeout, "Chat request timeout")
	flags.String("addr", config.DefaultHTTPAddr, "Dashboard listen address")
	flags.String("tts", config.ProviderConsole, "TTS provider: console, openai, google")
	flags.String("tts-voice", "", "Provider voice name")
	flags.String("stt", config.ProviderConsole, "Speech recognition: console, deepgram")
	flags.Duration("listen-timeout", config.DefaultListenTimeout, "How long to listen before giving up")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")

	bindFlag("chat.url", "chat-url")
	bindFlag("chat.timeout", "chat-timeout")
	bindFlag("http.addr", "addr")
	bindFlag("tts.provider", "tts")
	bindFlag("tts.voice", "tts-voice")
	bindFlag("stt.provider", "stt")
	bindFlag("listen.timeout", "listen-timeout")
	bindFlag("log.level", "log-level")

	rootCmd.AddCommand(callCmd, askCmd, voicesCmd)
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

// loadConfig resolves and validates configuration, then sets up logging.
// Logs go to stderr so the console recognizer and synthesizer own stdout.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return cfg, err
	}
	log.InitWriter(cfg.LogLevel, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
