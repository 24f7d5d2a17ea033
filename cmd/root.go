// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "github-compare",
	Short: "A CLI tool to analyze and compare GitHub repositories.",
	Long: `github-compare fetches repository metadata, contributors, weekly commit
activity, and language statistics from the GitHub REST API and produces a
normalized, comparison-ready structure for charting or reporting.

A GitHub token is optional; without one, requests are limited to public data
and anonymous rate limits.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("token", "", "GitHub access token (defaults to the GITHUB_TOKEN environment variable)")
}

// newLogger builds the logger for a command run: silent by default, debug
// level on standard error when --verbose is set.
func newLogger(cmd *cobra.Command) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if verbose, _ := cmd.InheritedFlags().GetBool("verbose"); verbose {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// resolveToken prefers the --token flag, then GITHUB_TOKEN from the
// environment, loading a .env file first when one is present.
func resolveToken(cmd *cobra.Command) string {
	if token, _ := cmd.InheritedFlags().GetString("token"); token != "" {
		return token
	}
	_ = godotenv.Load()
	return os.Getenv("GITHUB_TOKEN")
}
