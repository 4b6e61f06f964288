package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmorozov/sidenote/internal/cache"
	"github.com/pmorozov/sidenote/internal/extract"
	"github.com/pmorozov/sidenote/internal/ingest"
	"github.com/pmorozov/sidenote/internal/llm"
	"github.com/pmorozov/sidenote/internal/model"
	"github.com/pmorozov/sidenote/internal/pipeline"
	"github.com/pmorozov/sidenote/internal/segment"
	"github.com/pmorozov/sidenote/internal/unit"
	"github.com/pmorozov/sidenote/internal/worker"
)

var (
	outJSON     string
	outMD       string
	unitTimeout time.Duration
	maxAttempts int
	retryDelay  time.Duration
	strategy    string
	segmentSize int
	overlap     int
	unitNames   []string
	llmProvider string
	llmModel    string
	userAgent   string
	maxBytes    int64
	noCache     bool
	noFooter    bool
	noRobots    bool
	httpProxy   string
	httpsProxy  string
	workers     int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file-or-url>",
	Short: "Analyze a document and generate an annotated report",
	Long: `Analyze runs the configured analysis units over a document:
- Split the document into segments
- Each unit extracts findings per segment via the LLM
- Quoted snippets are relocated to exact byte offsets
- Overlapping annotations are deduplicated
- A per-unit outcome and cost summary is produced

Example:
  sidenote analyze notes.md
  sidenote analyze https://example.com/essay --json report.json --md report.md
  sidenote analyze paper.txt --units mathcheck,factcheck --llm-provider ollama`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Orchestration flags
	analyzeCmd.Flags().DurationVar(&unitTimeout, "timeout", 5*time.Minute, "per-unit timeout, retries included")
	analyzeCmd.Flags().IntVar(&maxAttempts, "max-attempts", 2, "attempts per unit for transient errors")
	analyzeCmd.Flags().DurationVar(&retryDelay, "retry-delay", 2*time.Second, "base delay between retries")
	analyzeCmd.Flags().StringSliceVar(&unitNames, "units", nil, "units to run (default: all)")
	analyzeCmd.Flags().IntVar(&workers, "workers", 4, "concurrent extraction calls per unit")

	// Segmentation flags
	analyzeCmd.Flags().StringVar(&strategy, "strategy", "structural", "segmentation strategy (fixed, paragraph, structural)")
	analyzeCmd.Flags().IntVar(&segmentSize, "segment-size", 4000, "max segment size in bytes")
	analyzeCmd.Flags().IntVar(&overlap, "overlap", 0, "overlap between fixed segments in bytes")

	// LLM flags
	analyzeCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	analyzeCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable extraction response cache")

	// HTTP flags for URL sources
	analyzeCmd.Flags().StringVar(&userAgent, "ua", "Sidenote/0.1 (+https://github.com/pmorozov/sidenote)", "HTTP User-Agent")
	analyzeCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	analyzeCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip robots.txt check for URL sources")
	analyzeCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	analyzeCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Units: %s\n", unitsLabel())
		fmt.Fprintf(os.Stderr, "Provider: %s\n", cfg.LLM.Provider)
		fmt.Fprintln(os.Stderr)
	}

	units, err := buildUnits(cfg, unitNames)
	if err != nil {
		return err
	}

	ctx := context.Background()

	loader := ingest.NewLoader(cfg.HTTP)
	doc, err := loader.Load(ctx, source)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d bytes from %s\n", len(doc.Text), doc.Source)
	}

	orch := pipeline.New(units, pipeline.Options{
		Segmentation: segment.Options{
			Strategy: segment.Strategy(cfg.Segmentation.Strategy),
			MaxSize:  cfg.Segmentation.MaxSize,
			Overlap:  cfg.Segmentation.Overlap,
		},
		UnitTimeout: cfg.Orchestrator.UnitTimeout,
		MaxAttempts: cfg.Orchestrator.MaxAttempts,
		RetryDelay:  cfg.Orchestrator.RetryDelay,
	})

	report, err := orch.Run(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	report.Source = doc.Source

	return renderReport(report, cfg, outJSON, outMD)
}

// buildConfig assembles the effective configuration from defaults and flags.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	cfg.Segmentation.Strategy = strategy
	cfg.Segmentation.MaxSize = segmentSize
	cfg.Segmentation.Overlap = overlap

	cfg.Orchestrator.UnitTimeout = unitTimeout
	cfg.Orchestrator.MaxAttempts = maxAttempts
	cfg.Orchestrator.RetryDelay = retryDelay

	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.RespectRobots = !noRobots
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy

	cfg.Cache.Enabled = !noCache
	cfg.Concurrency.SegmentWorkers = workers
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter

	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel

	switch cfg.Segmentation.Strategy {
	case "fixed", "paragraph", "structural":
	default:
		return nil, fmt.Errorf("unknown segmentation strategy %q", cfg.Segmentation.Strategy)
	}

	if err := resolveAPIKey(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveAPIKey pulls provider credentials from the environment.
func resolveAPIKey(cfg *model.Config) error {
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	default:
		return fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
	return nil
}

// buildUnits wires the extraction service and selects the units to run.
func buildUnits(cfg *model.Config, names []string) ([]unit.AnalysisUnit, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	limiter := worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)

	var store cache.Cache
	cacheTTL := time.Duration(0)
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("find home directory: %w", err)
			}
			dir = filepath.Join(home, ".sidenote", "cache")
		}
		store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
		cacheTTL = cfg.Cache.DiskTTL
	}

	service := extract.NewLLMService(provider, limiter, store, cacheTTL)

	deps := unit.Deps{
		Service: service,
		Workers: cfg.Concurrency.SegmentWorkers,
	}
	return unit.ByNames(deps, names)
}

// renderReport writes the requested outputs and a stderr summary.
func renderReport(report *model.Report, cfg *model.Config, jsonPath, mdPath string) error {
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)

	if jsonPath != "" {
		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("write JSON report: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", jsonPath)
		}
	}
	if mdPath != "" {
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("write Markdown report: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", mdPath)
		}
	}

	renderer.RenderSummary(report)
	return nil
}

func unitsLabel() string {
	if len(unitNames) == 0 {
		return "all"
	}
	return strings.Join(unitNames, ", ")
}
