package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/shahradelahi/aniwatch"
	"github.com/shahradelahi/aniwatch/client"
	"github.com/shahradelahi/aniwatch/episode"
	"github.com/shahradelahi/aniwatch/internal/logger"
	"github.com/shahradelahi/aniwatch/megacloud/solver"
	"github.com/shahradelahi/aniwatch/sources"
	"github.com/shahradelahi/aniwatch/types"
)

type outcome struct {
	Input   string                `json:"input"`
	Result  *types.EpisodeSources `json:"result,omitempty"`
	Servers *types.EpisodeServers `json:"servers,omitempty"`
	Error   string                `json:"error,omitempty"`
}

func main() {
	var (
		flagServer       string
		flagCategory     string
		flagTimeout      time.Duration
		flagRetries      int
		flagUA           string
		flagProxy        string
		flagSelect       string
		flagSubsDir      string
		flagSolverScript string
		flagSolverMode   string
		flagEval         bool
		flagLogLevel     string
		flagLogConfig    string
		flagServers      bool
		flagConcurrency  int
	)

	flag.StringVar(&flagServer, "server", episode.ServerHD1, "Episode server (hd-1, hd-2)")
	flag.StringVar(&flagCategory, "category", string(episode.CategorySub), "Episode category (sub, dub, raw)")
	flag.DurationVar(&flagTimeout, "http-timeout", 30*time.Second, "HTTP timeout (e.g., 30s, 1m)")
	flag.IntVar(&flagRetries, "retries", 1, "HTTP attempts for transient errors")
	flag.StringVar(&flagUA, "ua", "", "Override User-Agent header")
	flag.StringVar(&flagProxy, "proxy", "", "Proxy URL (http/https/socks)")
	flag.StringVar(&flagSelect, "select", "", "Keep one source (e.g., 'best', 'type=hls', 'quality=1080', 'height<=720')")
	flag.StringVar(&flagSubsDir, "subs-dir", "", "Download subtitle tracks into this directory")
	flag.StringVar(&flagSolverScript, "solver-script", "", "JS file defining solveSchedule(input)")
	flag.StringVar(&flagSolverMode, "solver-mode", "auto", "Solver mode when -solver-script is set (off, auto, force)")
	flag.BoolVar(&flagEval, "eval", false, "Evaluate constant expressions in the player script")
	flag.StringVar(&flagLogLevel, "log-level", "", "Log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	flag.StringVar(&flagLogConfig, "log-config", "", "JSON logging configuration file")
	flag.BoolVar(&flagServers, "servers", false, "List the episode servers instead of resolving sources")
	flag.IntVar(&flagConcurrency, "concurrency", 1, "Parallelism when several inputs are given")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <episode-id | embed-url>...\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	sel, err := sources.ParseSelector(flagSelect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -select: %v\n", err)
		os.Exit(2)
	}

	log, err := buildLogger(flagLogConfig, flagLogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid logging configuration: %v\n", err)
		os.Exit(2)
	}

	s := aniwatch.New().
		WithClientConfig(client.Config{Timeout: flagTimeout, Retries: flagRetries, UserAgent: flagUA, ProxyURL: flagProxy}).
		WithEvaluator(flagEval).
		WithLogger(log)

	if flagSolverScript != "" {
		mode, err := solver.ParseMode(flagSolverMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -solver-mode: %v\n", err)
			os.Exit(2)
		}
		s = s.WithSolver(mode, solver.NewGojaSolver(flagSolverScript))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resolve := func(input string) outcome {
		out := outcome{Input: input}
		if flagServers {
			servers, err := s.GetEpisodeServers(ctx, input)
			if err != nil {
				out.Error = err.Error()
				return out
			}
			out.Servers = &servers
			return out
		}

		src, err := s.GetEpisodeSources(ctx, input, flagServer, episode.Category(flagCategory))
		if err != nil {
			out.Error = err.Error()
			return out
		}
		if flagSelect != "" {
			picked := sel.Pick(src.Sources)
			if picked == nil {
				out.Error = fmt.Sprintf("no source matches %q", flagSelect)
				return out
			}
			src.Sources = []types.Source{*picked}
		}
		if flagSubsDir != "" {
			paths, err := s.DownloadTracks(ctx, src, flagSubsDir, titleOf(input))
			for _, p := range paths {
				fmt.Fprintf(os.Stderr, "Saved: %s\n", p)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Subtitle download: %v\n", err)
			}
		}
		out.Result = &src
		return out
	}

	inputs := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			inputs = append(inputs, a)
		}
	}

	results := make([]outcome, len(inputs))
	if flagConcurrency < 1 {
		flagConcurrency = 1
	}
	jobs := make(chan int, len(inputs))
	var wg sync.WaitGroup
	wg.Add(flagConcurrency)
	for w := 0; w < flagConcurrency; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = resolve(inputs[idx])
			}
		}()
	}
	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	failed := false
	for _, r := range results {
		if r.Error != "" {
			failed = true
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		r := results[0]
		switch {
		case r.Error != "":
			fmt.Fprintf(os.Stderr, "Error: %s\n", r.Error)
		case r.Servers != nil:
			_ = enc.Encode(r.Servers)
		default:
			_ = enc.Encode(r.Result)
		}
	} else {
		_ = enc.Encode(results)
	}
	if failed {
		os.Exit(1)
	}
}

func buildLogger(configPath, level string) (*logger.Logger, error) {
	cfg := logger.EnvironmentConfig()
	if configPath != "" {
		loaded, err := logger.LoadConfigFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if level != "" {
		cfg.Level = level
	}
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	return logger.CreateLoggerFromConfig(cfg)
}

// titleOf derives a file name base from an episode id or embed URL.
func titleOf(input string) string {
	if strings.HasPrefix(input, "http") {
		input = strings.TrimRight(input, "/")
		if i := strings.LastIndex(input, "/"); i >= 0 {
			input = input[i+1:]
		}
		input, _, _ = strings.Cut(input, "?")
		return input
	}
	slug, ep, _ := strings.Cut(input, "?ep=")
	if ep == "" {
		return slug
	}
	return slug + "-ep" + ep
}
