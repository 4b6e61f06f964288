package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmorozov/sidenote/internal/ingest"
	"github.com/pmorozov/sidenote/internal/pipeline"
	"github.com/pmorozov/sidenote/internal/segment"
	"github.com/pmorozov/sidenote/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple documents from a list in parallel",
	Long: `Batch analyzes multiple sources concurrently:
- Read sources from the input file (one file path or URL per line)
- Run the full unit pipeline for each source in parallel
- Write one JSON report per source into the output directory

Example:
  sidenote batch sources.txt
  sidenote batch sources.txt --concurrency 4 --output-dir ./reports
  sidenote batch sources.txt --units mathcheck --llm-provider ollama`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of documents analyzed in parallel")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./sidenote-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the whole batch")

	// Shared with analyze
	batchCmd.Flags().StringSliceVar(&unitNames, "units", nil, "units to run (default: all)")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable extraction response cache")
	batchCmd.Flags().StringVar(&userAgent, "ua", "Sidenote/0.1 (+https://github.com/pmorozov/sidenote)", "HTTP User-Agent")
}

type batchResult struct {
	Source string
	Path   string
	Err    error
}

func runBatch(cmd *cobra.Command, args []string) error {
	sources, err := readSources(args[0])
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no sources in %s", args[0])
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	units, err := buildUnits(cfg, unitNames)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	loader := ingest.NewLoader(cfg.HTTP)
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	opts := pipeline.Options{
		Segmentation: segment.Options{
			Strategy: segment.Strategy(cfg.Segmentation.Strategy),
			MaxSize:  cfg.Segmentation.MaxSize,
			Overlap:  cfg.Segmentation.Overlap,
		},
		UnitTimeout: cfg.Orchestrator.UnitTimeout,
		MaxAttempts: cfg.Orchestrator.MaxAttempts,
		RetryDelay:  cfg.Orchestrator.RetryDelay,
	}

	pool := worker.NewPool[batchResult](concurrency)
	pool.Start()

	for _, source := range sources {
		src := source
		pool.Submit(worker.TaskFunc[batchResult](func(_ context.Context) batchResult {
			doc, err := loader.Load(ctx, src)
			if err != nil {
				return batchResult{Source: src, Err: fmt.Errorf("load: %w", err)}
			}

			// Each document gets its own orchestrator: state is per run.
			orch := pipeline.New(units, opts)
			report, err := orch.Run(ctx, doc.Text)
			if err != nil {
				return batchResult{Source: src, Err: err}
			}
			report.Source = doc.Source

			path := filepath.Join(outputDir, reportFileName(src))
			if err := renderer.RenderJSON(report, path); err != nil {
				return batchResult{Source: src, Err: fmt.Errorf("write report: %w", err)}
			}
			return batchResult{Source: src, Path: path}
		}))
	}

	results := pool.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Source, r.Err)
		} else if verbose {
			fmt.Fprintf(os.Stderr, "✓ %s -> %s\n", r.Source, r.Path)
		}
	}

	fmt.Fprintf(os.Stderr, "Analyzed %d/%d sources, reports in %s\n", len(results)-failed, len(results), outputDir)
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(results))
	}
	return nil
}

// readSources reads one source per line, skipping blanks and # comments.
func readSources(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sources []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source list: %w", err)
	}
	return sources, nil
}

// reportFileName derives a filesystem-safe report name from a source.
func reportFileName(source string) string {
	name := source
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if len(name) > 120 {
		name = name[:120]
	}
	return name + ".json"
}
