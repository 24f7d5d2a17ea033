// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsaito/github-compare/internal/domain"
	"github.com/rsaito/github-compare/internal/gateway"
	"github.com/rsaito/github-compare/internal/usecase"
)

var compareCmd = &cobra.Command{
	Use:   "compare OWNER/REPO OWNER/REPO",
	Short: "Compares metrics of two GitHub repositories and outputs as JSON",
	Long: `Fetches metadata, contributors, weekly commit activity, and language
statistics for two repositories, aligns their commit series on a shared week
axis, and outputs the comparison in JSON format. Repositories can be given as
OWNER/REPO or as full github.com URLs.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		ids := make([]domain.Identifier, 0, len(args))
		for _, arg := range args {
			id, err := domain.ParseIdentifier(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			ids = append(ids, id)
		}

		githubGateway, err := gateway.NewGitHubGateway(resolveToken(cmd), logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		collector := usecase.NewCollector(githubGateway, logger)

		weeks, _ := cmd.Flags().GetInt("weeks")
		topN, _ := cmd.Flags().GetInt("top")
		filter, _ := cmd.Flags().GetString("filter")
		result, err := collector.Compare(ctx, ids, usecase.Options{
			Weeks:             weeks,
			TopContributors:   topN,
			ContributorFilter: filter,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Comparison failed: %v\n", err)
			if gateway.IsUnauthorized(err) {
				fmt.Fprintln(os.Stderr, "Hint: supply a token with --token or the GITHUB_TOKEN environment variable.")
			}
			os.Exit(1)
		}

		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal result to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().Int("weeks", 0, "Only include the last N weeks of commit activity (0 = all)")
	compareCmd.Flags().Int("top", 0, "Number of top contributors per repository (default 10)")
	compareCmd.Flags().String("filter", "", "Only include contributors whose login contains this substring")
}
