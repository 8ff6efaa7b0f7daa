package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/cache"
	"github.com/KOFI-GYIMAH/github-popularity/internal/config"
	"github.com/KOFI-GYIMAH/github-popularity/internal/gateway"
	"github.com/KOFI-GYIMAH/github-popularity/internal/github"
	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/internal/scoring"
	"github.com/KOFI-GYIMAH/github-popularity/internal/service"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	since    string
	language string
	limit    int
	asJSON   bool
	maxPages int

	rootCmd = &cobra.Command{
		Use:   "popular",
		Short: "Rank popular GitHub repositories created after a date",
		Example: "  popular --since 2024-01-01 --language Go\n" +
			"  popular --since 2024-01-01 --language Rust --limit 10 --json",
		SilenceUsage: true,
		RunE:         run,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVar(&since, "since", "", "only repositories created after this date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&language, "language", "", "primary language, case-sensitive")
	rootCmd.Flags().IntVar(&limit, "limit", 20, "max repositories to print, 0 prints all")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "override GITHUB_MAX_PAGES_TO_FETCH")
	_ = rootCmd.MarkFlagRequired("since")
	_ = rootCmd.MarkFlagRequired("language")
}

func run(cmd *cobra.Command, args []string) error {
	date, err := time.Parse(dateLayout, since)
	if err != nil {
		return fmt.Errorf("invalid --since %q, expected YYYY-MM-DD", since)
	}

	cfg, err := config.LoadConfiguration()
	if err != nil {
		return err
	}
	if maxPages > 0 {
		cfg.GitHub.MaxPagesToFetch = maxPages
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// * keep stdout clean for the ranking
	logger.SetOutput(os.Stderr)
	if !cfg.Debug {
		logger.SetLevel(logger.LevelWarn)
	}

	client, err := github.NewClient(cfg.ClientOptions())
	if err != nil {
		return err
	}

	svc := service.NewPopularityService(
		gateway.New(client, cfg.GatewaySettings()),
		scoring.NewScorer(cfg.Scoring),
		cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries),
		nil,
		cfg.ServiceOptions(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	items, err := svc.GetPopularRepositories(ctx, date.Format(dateLayout), language)
	if err != nil {
		return err
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), items)
	}
	return printTable(cmd.OutOrStdout(), items)
}

func printJSON(w io.Writer, items []models.RankedRepository) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(models.PopularRepositoriesResponse{Count: len(items), Items: items})
}

func printTable(w io.Writer, items []models.RankedRepository) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No repositories found.")
		return err
	}

	header := color.New(color.Bold).SprintFunc()
	score := color.New(color.FgGreen).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
		header("#"), header("REPOSITORY"), header("SCORE"), header("STARS"), header("FORKS"), header("URL"))
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			i+1, it.FullName, score(fmt.Sprintf("%.2f", it.PopularityScore)), it.Stars, it.Forks, it.URL)
	}
	return tw.Flush()
}
