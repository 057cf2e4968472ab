// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the concept-engine CLI.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/concept-engine/internal/secrets"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ and the environment at startup.
var loadedSecrets map[string]string

// logger is configured by the root command; --verbose switches it to Debug.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

// rootCmd is the base command for the concept-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "concept-engine",
	Short: "Discover related concepts and score the evidence behind them",
	Long: `concept-engine expands a seed concept into a small graph of related
concepts. Candidates are proposed by a language model, filtered by embedding
similarity, and scored for credibility against encyclopedia and preprint
sources.

Runs are stored in a local SQLite database and can be mirrored into a
Neo4j-compatible graph. The same operations are served as a JSON API by
the serve command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = secrets.WithEnv(s, os.Getenv)
		if len(loadedSecrets) > 0 {
			keys := make([]string, 0, len(loadedSecrets))
			for k := range loadedSecrets {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./concept-engine.yaml or ~/.config/concept-engine/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")
}

// envOnlyKeys are config keys without a default value that may still be
// set from the environment.
var envOnlyKeys = []string{
	"similarity.api_key", "similarity.base_url",
	"generator.api_key", "generator.base_url",
	"cache.redis_addr", "cache.redis_password",
	"graph.uri", "graph.username", "graph.password", "graph.database",
	"evidence.email",
}

func initConfig() {
	// A missing .env is the common case.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("concept-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "concept-engine"))
		}
	}

	viper.SetEnvPrefix("CONCEPT_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := setDefaults(viper.GetViper(), types.DefaultConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not register config defaults:", err)
	}
	for _, key := range envOnlyKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every field of cfg as a viper default so that
// AutomaticEnv can override nested keys.
func setDefaults(v *viper.Viper, cfg types.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for section, values := range m {
		v.SetDefault(section, values)
	}
	return nil
}

// loadConfig unmarshals the merged configuration, fills credentials from
// secrets, and validates the result.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
