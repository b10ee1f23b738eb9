package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/withexxa/hn-whoshiring/api"
	"github.com/withexxa/hn-whoshiring/db"
	"github.com/withexxa/hn-whoshiring/extract"
	"github.com/withexxa/hn-whoshiring/models"
	"github.com/withexxa/hn-whoshiring/scraper"
	"github.com/withexxa/hn-whoshiring/stats"
	"github.com/withexxa/hn-whoshiring/utils"
)

const usage = `usage: hn-whoshiring [-env .env] [-log-level info] <command>

commands:
  fetch    archive every "Who is hiring?" thread and its comments
  extract  run the LLM over every archived thread
  analyze  parse completions, export CSV and print statistics
  serve    serve statistics over HTTP
`

func main() {
	envPath := flag.String("env", ".env", "Path to .env file")
	logLevel := flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	log := setupLogger(*logLevel)

	config, err := utils.LoadConfig(*envPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go waitForShutdown(ctx, cancel, log)

	switch command {
	case "fetch":
		err = runFetch(ctx, config, log)
	case "extract":
		err = runExtract(ctx, config, log)
	case "analyze":
		err = runAnalyze(ctx, config, log)
	case "serve":
		err = runServe(ctx, config, log)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.WithError(err).WithField("command", command).Fatal("Command failed")
	}
}

// setupLogger sets up the logger with the specified log level
func setupLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func runFetch(ctx context.Context, config *utils.Config, log *logrus.Logger) error {
	log.WithFields(logrus.Fields{
		"accounts":      config.HackerNews.Accounts,
		"max_in_flight": config.HackerNews.MaxInFlight,
		"classifier":    config.HackerNews.Classifier,
		"output":        config.Output.Dir,
	}).Info("Starting fetch")

	database, err := db.NewDatabase(config.Database.Path, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	classifier, err := scraper.NewClassifier(config.HackerNews.Classifier)
	if err != nil {
		return err
	}

	hackerNewsAPI := api.NewHackerNewsAPI(api.Options{
		BaseURL:           config.HackerNews.BaseURL,
		Timeout:           time.Duration(config.HackerNews.TimeoutSeconds) * time.Second,
		MaxInFlight:       config.HackerNews.MaxInFlight,
		RequestsPerSecond: config.HackerNews.RequestsPerSecond,
	}, log)

	pipeline := scraper.NewPipeline(hackerNewsAPI, database, classifier, config.HackerNews.Accounts, config.Output.Dir, log)
	summary, err := pipeline.Run(ctx)

	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("%s %s\n", cyan("Run"), summary.RunID)
	fmt.Printf("  threads:  %d\n", summary.Discovered)
	fmt.Printf("  archived: %s\n", green(summary.Archived))
	fmt.Printf("  cached:   %s\n", yellow(summary.Skipped))
	fmt.Printf("  failed:   %s\n", red(summary.Failed))

	return err
}

func runExtract(ctx context.Context, config *utils.Config, log *logrus.Logger) error {
	if config.LLM.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required for extract")
	}

	completer, err := extract.NewGeminiCompleter(ctx, config.LLM.APIKey, config.LLM.Model, float32(config.LLM.Temperature))
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"model":   config.LLM.Model,
		"workers": config.LLM.Workers,
	}).Info("Starting extraction")

	processor := extract.NewProcessor(completer, config.LLM.Workers, log)
	summary, err := processor.ProcessDirectory(ctx, config.Output.Dir)

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("files: %d (%s cached), comments: %d\n", summary.Files, yellow(summary.Skipped), summary.Comments)
	fmt.Printf("completions: %s, llm errors: %s, failed files: %s\n",
		green(summary.Completions), red(summary.LLMErrors), red(summary.FileErrors))

	return err
}

func runAnalyze(ctx context.Context, config *utils.Config, log *logrus.Logger) error {
	database, err := db.NewDatabase(config.Database.Path, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	analyzer := stats.NewAnalyzer(database, analysisOptions(config), log)

	rows, summary, err := analyzer.Load(ctx, config.Output.Dir)
	if err != nil {
		return err
	}

	if err := stats.ExportCSV(config.Analysis.CSVPath, rows); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"path": config.Analysis.CSVPath,
		"rows": len(rows),
	}).Info("Exported postings")

	statistics := analyzer.GetStatistics()
	statsPath := filepath.Join(config.Output.Dir, "stats.json")
	if err := writeStatistics(statsPath, statistics); err != nil {
		return err
	}

	printStatistics(summary, statistics)
	return nil
}

func runServe(ctx context.Context, config *utils.Config, log *logrus.Logger) error {
	database, err := db.NewDatabase(config.Database.Path, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	total, err := database.GetTotalPostings()
	if err != nil {
		return err
	}
	if total == 0 {
		log.Warn("No postings stored yet, run analyze first")
	}

	analyzer := stats.NewAnalyzer(database, analysisOptions(config), log)
	if err := analyzer.Refresh(); err != nil {
		return err
	}

	startEchoServer(ctx, config.Server.Port, analyzer, log, config.Server.MaxRequestsPerMinute)
	return nil
}

func analysisOptions(config *utils.Config) stats.Options {
	return stats.Options{
		MinMonthlyPostings: config.Analysis.MinMonthlyPostings,
		MaxCompensation:    config.Analysis.MaxCompensation,
	}
}

func writeStatistics(path string, statistics models.Statistics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create statistics directory: %w", err)
	}

	data, err := json.MarshalIndent(statistics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode statistics: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func printStatistics(summary stats.LoadSummary, statistics models.Statistics) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("%s\n", cyan("Completions"))
	fmt.Printf("  files: %d, valid: %s, invalid: %s\n", summary.Files, green(summary.Valid), red(summary.Invalid))

	fmt.Printf("%s\n", cyan("Postings"))
	fmt.Printf("  offers: %d, demands: %d\n", statistics.TotalOffers, statistics.TotalDemands)
	if statistics.AverageCompensation != nil {
		fmt.Printf("  average compensation: %.1fk\n", *statistics.AverageCompensation)
	}

	if len(statistics.TopCountries) > 0 {
		fmt.Printf("%s\n", cyan("Top countries"))
		for _, c := range statistics.TopCountries {
			fmt.Printf("  %-12s %d\n", c.Label, c.Count)
		}
	}

	if len(statistics.TopTechnologies) > 0 {
		fmt.Printf("%s\n", cyan("Top technologies"))
		for _, c := range statistics.TopTechnologies {
			fmt.Printf("  %-12s %d\n", c.Label, c.Count)
		}
	}
}

// waitForShutdown cancels the root context on SIGINT or SIGTERM
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, log *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
		cancel()
	case <-ctx.Done():
	}
}
