package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	analyser "github.com/Arrow-air/Flight-Log-Analyser"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "analyze":
		err = analyzeCommand(os.Args[2:])
	case "redact":
		err = redactCommand(os.Args[2:])
	case "serve":
		err = serveCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "sessions":
		err = sessionsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("log-analyser %s: %v", cmd, err)
	}
}

func loadConfig(path string) (*analyser.Config, error) {
	if path == "" {
		return analyser.DefaultConfig(), nil
	}
	cfg, err := analyser.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *analyser.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func analyzeCommand(args []string) error {
	fs := pflag.NewFlagSet("analyze", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "", "Path to configuration file (defaults apply when empty)")
	out := fs.StringP("out", "o", "", "Directory for chart images (default: <plot_dir>/<log name>)")
	notes := fs.String("notes", "", "Markdown notes to render next to the charts")
	progress := fs.Int("progress", 0, "Print a progress line every N records (0 disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one log file (.BIN or .log)")
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	var opts []analyser.ExtractOption
	if *progress > 0 {
		opts = append(opts, analyser.WithRecordProgress(*progress, func(n int) {
			logger.Info("decoding", "log", path, "records", n)
		}))
	}

	start := time.Now()
	set, stats, err := analyser.Extract(path, opts...)
	if err != nil {
		return err
	}
	logger.Info("extract complete",
		"log", path,
		"records", stats.Records,
		"extracted", stats.Extracted,
		"dropped", stats.Dropped,
		"malformed", stats.Malformed,
		"duration", time.Since(start),
	)

	dir := *out
	if dir == "" {
		dir = filepath.Join(cfg.Storage.PlotDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	charts, err := analyser.RenderCharts(ctx, set, dir, cfg.Render)
	if err != nil {
		return err
	}
	topics := make([]string, 0, len(charts))
	for topic := range charts {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		fmt.Printf("%-10s %s\n", topic, charts[topic])
	}

	if *notes != "" {
		src, err := os.ReadFile(*notes)
		if err != nil {
			return fmt.Errorf("read notes: %w", err)
		}
		html, err := analyser.RenderNotes(src)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		notesPath := filepath.Join(dir, "notes.html")
		if err := os.WriteFile(notesPath, []byte(html), 0o644); err != nil {
			return fmt.Errorf("write notes: %w", err)
		}
		fmt.Printf("%-10s %s\n", "notes", notesPath)
	}
	return nil
}

func redactCommand(args []string) error {
	fs := pflag.NewFlagSet("redact", pflag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: log-analyser redact <in.log> <out.log>")
	}
	n, err := analyser.RedactFile(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	fmt.Printf("redacted %d lines into %s\n", n, fs.Arg(1))
	return nil
}

func serveCommand(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "./data/config.yaml", "Path to configuration file")
	user := fs.String("user", "", "Owner of the logs given as arguments")
	anonymize := fs.Bool("anonymize", false, "Redact coordinates of the logs given as arguments")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	results := analyser.NewCallbackResultSink("log", func(res analyser.JobResult) error {
		if res.Err != nil {
			logger.Error("job failed", "job", res.JobID, "err", res.Err)
			return nil
		}
		logger.Info("job done", "job", res.JobID, "session", res.SessionID, "charts", len(res.PlotFiles))
		return nil
	})

	rt, err := analyser.NewRuntime(cfg, analyser.WithLogger(logger), analyser.WithResultSink(results))
	if err != nil {
		return err
	}

	for _, name := range fs.Args() {
		id, err := rt.Submit(&analyser.Job{UserID: *user, LogFile: name, Anonymize: *anonymize})
		if err != nil {
			return fmt.Errorf("submit %s: %w", name, err)
		}
		logger.Info("job submitted", "job", id, "log", name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ExitOnError)
	cfgPath := fs.StringP("config", "c", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := analyser.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func sessionsCommand(args []string) error {
	fs := pflag.NewFlagSet("sessions", pflag.ExitOnError)
	base := fs.String("url", "http://localhost:9100", "Address of a running serve instance")
	user := fs.String("user", "", "User whose sessions to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("--user is required")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimRight(*base, "/") + "/sessions?user=" + url.QueryEscape(*user))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("unexpected status %s: %s", resp.Status, body.Error)
	}

	var list []analyser.Session
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("decode sessions: %w", err)
	}
	for _, s := range list {
		fmt.Printf("%s  %s  %-24s videos=%d\n",
			s.CreatedAt.Format(time.RFC3339), s.ID, s.LogFile, len(s.Videos))
	}
	if len(list) == 0 {
		fmt.Printf("no sessions for %s\n", *user)
	}
	return nil
}

func statsCommand(args []string) error {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	endpoint := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *endpoint)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*endpoint); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(endpoint string) error {
	resp, err := http.Get(endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"flightlog_jobs_completed_total": 0,
		"flightlog_jobs_failed_total":    0,
		"flightlog_job_queue_length":     0,
		"flightlog_wal_size_bytes":       0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] completed=%.0f failed=%.0f queue=%.0f wal_bytes=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["flightlog_jobs_completed_total"],
		targets["flightlog_jobs_failed_total"],
		targets["flightlog_job_queue_length"],
		targets["flightlog_wal_size_bytes"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`Flight log analyser

Usage:
  log-analyser <command> [flags]

Commands:
  analyze    Decode a .BIN or .log file and write one chart per topic
  redact     Zero the coordinates in a text log
  serve      Start the job runtime with uploads, /jobs and /metrics
  validate   Load and validate a config file without starting anything
  stats      Poll the Prometheus metrics endpoint and print live counters
  sessions   List a user's processed sessions

Examples:
  log-analyser analyze --out ./plots 00000042.BIN
  log-analyser redact flight.log flight_anon.log
  log-analyser serve --config ./data/config.yaml
  log-analyser sessions --url http://localhost:9100 --user alice
  log-analyser stats --url http://localhost:9100/metrics --interval 1s
`)
}
