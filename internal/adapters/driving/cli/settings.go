package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change provider, pipeline and storage settings.

Settings are stored in the config file; environment variables override the
provider API keys and connection URLs at startup.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Change one setting",
	Long: `Change one setting by dotted key, e.g.

  plataformas settings set llm.provider anthropic
  plataformas settings set pipeline.workers 4

API keys may be omitted from the command line; they are then read from the
terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if settingsService == nil {
			return errNotConfigured("settings")
		}
		for _, k := range settingsService.Keys() {
			cmd.Println(k)
		}
		return nil
	},
}

// readSecret reads a value without echo. Replaced in tests.
var readSecret = func() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return string(b), err
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredLabel(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredLabel(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Pipeline]")
	cmd.Printf("  Chunk size: %d (overlap %d)\n", settings.Chunker.TargetSize, settings.Chunker.Overlap)
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Temperature: %.2f, max tokens %d\n", settings.Synthesis.Temperature, settings.Synthesis.MaxTokens)
	cmd.Printf("  Attempts: %d (backoff %s..%s)\n",
		settings.Synthesis.MaxAttempts, settings.Synthesis.InitialBackoff, settings.Synthesis.MaxBackoff)
	if settings.Synthesis.RequestsPerMinute > 0 {
		cmd.Printf("  Rate limit: %d/min\n", settings.Synthesis.RequestsPerMinute)
	}
	cmd.Printf("  Workers: %d\n", settings.Pipeline.Workers)
	cmd.Printf("  Keep history: %t\n", settings.Pipeline.KeepHistory)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Vectors: %s\n", settings.Vector.Backend.Description())
	if settings.Vector.PostgresURL != "" {
		cmd.Printf("  Postgres: %s\n", redactURL(settings.Vector.PostgresURL))
	}
	if settings.Cache.RedisURL != "" {
		cmd.Printf("  Query cache: %s (ttl %s)\n", redactURL(settings.Cache.RedisURL), settings.Cache.TTL)
	} else {
		cmd.Println("  Query cache: disabled")
	}
	if settings.Telemetry.OTLPEndpoint != "" {
		cmd.Printf("  Tracing: %s (sample %.2f)\n", settings.Telemetry.OTLPEndpoint, settings.Telemetry.SampleRatio)
	}
	cmd.Println()

	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("Warning: embedding: %v\n", err)
	}
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("Warning: llm: %v\n", err)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !strings.HasSuffix(key, ".api_key") {
			return fmt.Errorf("missing value for %s", key)
		}
		cmd.Printf("%s: ", key)
		secret, err := readSecret()
		if err != nil {
			return fmt.Errorf("reading %s: %w", key, err)
		}
		value = strings.TrimSpace(secret)
	}

	if err := settingsService.Set(key, value); err != nil {
		return err
	}
	if strings.HasSuffix(key, ".api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// redactURL hides the password in a connection URL.
func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	userinfo := raw[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		return raw[:scheme+3] + userinfo[:colon] + ":****" + raw[at:]
	}
	return raw
}
