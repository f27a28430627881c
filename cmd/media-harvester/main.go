package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"media-harvester/pkg/config"
	"media-harvester/pkg/detect"
	"media-harvester/pkg/fetch"
	"media-harvester/pkg/harvest"
	"media-harvester/pkg/parse"
	"media-harvester/pkg/queue"
	"media-harvester/pkg/storage"
	"media-harvester/pkg/transfer"
	"media-harvester/pkg/utils"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "harvest":
		runHarvest(os.Args[2:], false)
	case "resume":
		runHarvest(os.Args[2:], true)
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("media-harvester %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`media-harvester - Hero media detector and downloader

Usage:
  media-harvester <command> [options] [page URLs...]

Commands:
  harvest     Harvest hero media from the given page URLs
  resume      Harvest, skipping media recorded in an earlier run
  validate    Validate configuration file
  version     Show version info

Run 'media-harvester <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file. A missing file is not an
// error; defaults apply
func loadConfig(path string) (*config.AppConfig, error) {
	var cfg config.AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// runHarvest handles both harvest and resume subcommands
func runHarvest(args []string, isResume bool) {
	cmdName := "harvest"
	if isResume {
		cmdName = "resume"
	}

	fs := flag.NewFlagSet(cmdName, flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	urlsFile := fs.String("urls-file", "", "File with one page URL per line")
	outputDir := fs.String("output", "", "Override output directory")
	stateDir := fs.String("state", "", "Override state directory")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	noRobots := fs.Bool("no-robots", false, "Skip robots.txt checks")
	writeHistoryLog := fs.Bool("write-history-log", false, "Write downloaded-URL log on completion")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: media-harvester %s [options] <page URL> [more URLs...]\n\nOptions:\n", cmdName)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  media-harvester %s https://www.instagram.com/p/abc123/\n", cmdName)
		fmt.Fprintf(os.Stderr, "  media-harvester %s -urls-file pages.txt -output ./media\n", cmdName)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	pageURLs := fs.Args()
	if *urlsFile != "" {
		fileURLs, err := readURLsFile(*urlsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		pageURLs = append(pageURLs, fileURLs...)
	}
	if len(pageURLs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one page URL is required")
		fs.Usage()
		os.Exit(1)
	}

	executeHarvest(*configFile, pageURLs, *outputDir, *stateDir, *logLevel, *noRobots, *writeHistoryLog, isResume)
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: media-harvester validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	warnings, _ := cfg.Validate()
	for _, w := range warnings {
		fmt.Printf("WARN: %s\n", w)
	}
	fmt.Println("Configuration valid.")
}

// readURLsFile reads one URL per line, skipping blanks and # comments
func readURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open urls file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// setupLogger creates a configured logrus.Logger with the given log level
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// historyScope derives the per-site state scope from the first parseable page
// URL, matching how state directories are keyed
func historyScope(pageURLs []string) string {
	for _, raw := range pageURLs {
		if _, loc, err := parse.ParseAndNormalize(raw); err == nil && loc.Hostname() != "" {
			return loc.Hostname()
		}
	}
	return "default"
}

func executeHarvest(configFile string, pageURLs []string, outputDir, stateDir, logLevelStr string, noRobots, writeHistoryLog, isResume bool) {
	log := setupLogger(logLevelStr)

	// --- Load Configuration ---
	log.Infof("Loading configuration from %s", configFile)
	appCfg, err := loadConfig(configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	warnings, _ := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}

	// --- CLI Overrides ---
	if outputDir != "" {
		appCfg.OutputDir = outputDir
	}
	if stateDir != "" {
		appCfg.StateDir = stateDir
	}
	if noRobots {
		off := false
		appCfg.RespectRobots = &off
	}

	log.Infof("Harvesting %d page(s) -> %s (state: %s, resume: %t)",
		len(pageURLs), appCfg.OutputDir, appCfg.StateDir, isResume)
	log.Infof("Queue: %d retries per item, %v attempt timeout; robots: %t",
		appCfg.Queue.MaxRetryAttempts(), appCfg.Queue.AttemptTimeout, appCfg.GetRespectRobots())

	// --- Global Context & Signal Handling ---
	var runCtx context.Context
	var cancelRun context.CancelFunc
	if appCfg.GlobalHarvestTimeout > 0 {
		log.Infof("Setting global harvest timeout: %v", appCfg.GlobalHarvestTimeout)
		runCtx, cancelRun = context.WithTimeout(context.Background(), appCfg.GlobalHarvestTimeout)
	} else {
		runCtx, cancelRun = context.WithCancel(context.Background())
	}
	defer cancelRun()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
		cancelRun()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	// --- Initialize Components ---
	log.Info("Initializing components...")
	logEntry := log.WithField("component", "harvest")

	store, err := storage.NewBadgerStore(runCtx, appCfg.StateDir, historyScope(pageURLs), isResume, logEntry)
	if err != nil {
		log.Fatalf("Failed to initialize history DB: %v", err)
	}
	defer store.Close()
	go store.RunGC(runCtx, appCfg.DBGCInterval)

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, log)
	fetcher := fetch.NewFetcher(httpClient, appCfg, logEntry)
	rateLimiter := fetch.NewRateLimiter(appCfg.DefaultDelayPerHost, logEntry)
	globalSemaphore := semaphore.NewWeighted(int64(appCfg.MaxRequests))

	var robots *fetch.RobotsHandler
	if appCfg.GetRespectRobots() {
		robots = fetch.NewRobotsHandler(fetcher, rateLimiter, globalSemaphore, appCfg, logEntry)
	}

	transport := transfer.NewHTTPTransport(httpClient, rateLimiter, robots, globalSemaphore, appCfg, log)
	downloadQueue := queue.New(appCfg.Queue, transport, log)
	selector := detect.NewSelector(appCfg.Detection, log)
	harvester := harvest.New(appCfg, fetcher, rateLimiter, robots, selector, downloadQueue, store, log)

	// --- Run ---
	report, err := harvester.Run(runCtx, pageURLs)

	if report != nil {
		log.Infof("Harvest finished: %d page(s), %d downloaded, %d failed",
			len(report.Pages), report.Completed, report.Failed)
	}

	// --- Final History Log (Optional) ---
	if runCtx.Err() != nil {
		log.Warnf("Skipping history log due to run context error: %v", runCtx.Err())
	} else if writeHistoryLog {
		logPath := filepath.Join(appCfg.OutputDir,
			fmt.Sprintf("%s-history.txt", utils.SanitizeFilename(historyScope(pageURLs))))
		if writeErr := store.WriteHistoryLog(logPath); writeErr != nil {
			log.Errorf("Error writing history log: %v", writeErr)
		}
	}

	// --- Exit ---
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Harvest cancelled gracefully.")
			os.Exit(0)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("Harvest timed out (global timeout).")
			os.Exit(1)
		}
		log.Errorf("Harvest finished with error: %v", err)
		os.Exit(1)
	}
	if report != nil && report.Failed > 0 {
		os.Exit(1)
	}
	os.Exit(0)
}
