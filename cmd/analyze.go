// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsaito/github-compare/internal/domain"
	"github.com/rsaito/github-compare/internal/gateway"
	"github.com/rsaito/github-compare/internal/report"
	"github.com/rsaito/github-compare/internal/usecase"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze OWNER/REPO",
	Short: "Analyzes a single GitHub repository and outputs as JSON",
	Long: `Fetches metadata, contributors, weekly commit activity, and language
statistics for one repository and outputs the normalized view in JSON format.
With --report, a plain-text analysis report is printed instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		id, err := domain.ParseIdentifier(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
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
		result, err := collector.Compare(ctx, []domain.Identifier{id}, usecase.Options{
			Weeks:             weeks,
			TopContributors:   topN,
			ContributorFilter: filter,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
			if gateway.IsNotFound(err) {
				fmt.Fprintf(os.Stderr, "Hint: %s was not found; check the owner and repository name.\n", id)
			}
			os.Exit(1)
		}

		if asReport, _ := cmd.Flags().GetBool("report"); asReport {
			text, err := report.Build(result, 0, time.Now())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to build report: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(text)
			return
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
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Int("weeks", 0, "Only include the last N weeks of commit activity (0 = all)")
	analyzeCmd.Flags().Int("top", 0, "Number of top contributors (default 10)")
	analyzeCmd.Flags().String("filter", "", "Only include contributors whose login contains this substring")
	analyzeCmd.Flags().Bool("report", false, "Output a plain-text analysis report instead of JSON")
}
