// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the memo-engine CLI.
// Implements: prd001-ingestion, prd002-split, prd004-extraction,
//             prd005-memo, prd006-benchmark (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dianesarkis1/memo-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ (or environment
// fallbacks) at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the memo-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "memo-engine",
	Short: "Investment-memo extraction and benchmarking for credit agreements",
	Long: `memo-engine turns unstructured credit agreements into structured
investment memos and benchmarks the extraction backends that produce them.

Each pipeline stage is a subcommand: ingest canonicalizes and partitions a
corpus, extract runs the configured backends over it, bench scores the
resulting memos against references and each other, and memo renders a single
stored memo.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./memo-engine.yaml or ~/.config/memo-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("memo-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "memo-engine"))
		}
	}

	viper.SetEnvPrefix("MEMO_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
