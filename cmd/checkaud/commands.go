package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/checkaud/checkaud/internal/config"
	"github.com/checkaud/checkaud/internal/evaluation"
	"github.com/checkaud/checkaud/internal/llm"
	"github.com/checkaud/checkaud/internal/pipeline"
	"github.com/checkaud/checkaud/internal/prompter"
	"github.com/checkaud/checkaud/internal/storage"
	"github.com/checkaud/checkaud/internal/transcript"
)

// deps bundles everything a pipeline command needs, with a cleanup that
// closes the store and the transcript archive.
type deps struct {
	cfg      config.Config
	store    *storage.Store
	pipeline *pipeline.Pipeline
	cleanup  func()
}

func openDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	archive, err := transcript.Open(cfg.Storage.TranscriptDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening transcript archive: %w", err)
	}

	client := llm.NewClientWithBaseURL(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	sender := prompter.New(client, archive, prompter.Options{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTries:    cfg.LLM.MaxTries,
	})

	p, err := pipeline.New(cfg, sender, store)
	if err != nil {
		archive.Close()
		store.Close()
		return nil, err
	}

	return &deps{
		cfg:      cfg,
		store:    store,
		pipeline: p,
		cleanup: func() {
			if err := archive.Close(); err != nil {
				printWarning("closing transcript archive: %v", err)
			}
			if err := store.Close(); err != nil {
				printWarning("closing storage: %v", err)
			}
		},
	}, nil
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate [work product ...]",
	Short: "Generate compliance checklists",
	Long: `Generate compliance checklists for the named work products, or for
every work product in the dataset when none are named.

Examples:
  checkaud generate
  checkaud generate "Software Requirements Specification"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		printStep("Generating checklists...")
		result, err := d.pipeline.GenerateChecklists(ctx, args)
		if err != nil {
			return err
		}

		for _, cl := range result.Checklists {
			printSuccess("%s (%d items)", cl.WorkProduct, len(cl.Items))
		}
		for _, wp := range result.Skipped {
			printWarning("skipped %s", wp)
		}
		printStatus("Run", "%s", result.RunID)
		printStatus("Reports", "%s", d.cfg.Storage.ReportDir)
		return nil
	},
}

// --- context ---

var contextCmd = &cobra.Command{
	Use:   "context [work product ...]",
	Short: "Generate work-product contexts",
	Long: `Generate the description-and-concepts context for the named work
products (all of them when none are named) and write their markdown
renditions to the report directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		printStep("Generating contexts...")
		contexts, err := d.pipeline.GenerateContexts(ctx, args)
		if err != nil {
			return err
		}

		for wp := range contexts {
			printSuccess("%s", wp)
		}
		printStatus("Reports", "%s", d.cfg.Storage.ReportDir)
		return nil
	},
}

// --- evaluate ---

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [work product ...]",
	Short: "Evaluate stored checklists against the rubrics",
	Long: `Score stored checklists at the configured evaluation levels. The
--level flag overrides the configuration.

Examples:
  checkaud evaluate
  checkaud evaluate --level question,requirement "Software Requirements Specification"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		levelStr, _ := cmd.Flags().GetString("level")

		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.cleanup()

		levels := evaluation.Levels{
			Question:    d.cfg.Evaluation.QuestionLevel,
			Checklist:   d.cfg.Evaluation.ChecklistLevel,
			Requirement: d.cfg.Evaluation.RequirementLevel,
		}
		if levelStr != "" {
			levels, err = parseLevels(levelStr)
			if err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		printStep("Evaluating checklists...")
		evals, err := d.pipeline.Evaluate(ctx, args, levels)
		if err != nil {
			return err
		}
		if len(evals) == 0 {
			printWarning("nothing to evaluate")
			return nil
		}

		for _, e := range evals {
			fmt.Printf("%s  %s  %s  %s  %d\n",
				colorize(colorCyan, e.Level),
				e.WorkProduct,
				e.Subject,
				colorize(colorBold, e.Rubric),
				e.Score,
			)
		}
		printSuccess("%d rubric scores recorded", len(evals))
		return nil
	},
}

func parseLevels(s string) (evaluation.Levels, error) {
	var levels evaluation.Levels
	for part := range strings.SplitSeq(s, ",") {
		switch strings.TrimSpace(part) {
		case evaluation.LevelQuestion:
			levels.Question = true
		case evaluation.LevelChecklist:
			levels.Checklist = true
		case evaluation.LevelRequirement:
			levels.Requirement = true
		default:
			return evaluation.Levels{}, fmt.Errorf("unknown evaluation level %q", strings.TrimSpace(part))
		}
	}
	return levels, nil
}

func init() {
	evaluateCmd.Flags().String("level", "", "comma-separated evaluation levels: question, checklist, requirement")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, kv := range config.Describe(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, kv[0]), kv[1])
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
