package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conformadev/conforma/internal/analysis"
	"github.com/conformadev/conforma/internal/audit"
	"github.com/conformadev/conforma/internal/evidence"
	"github.com/conformadev/conforma/internal/job"
	"github.com/conformadev/conforma/internal/kb"
	"github.com/conformadev/conforma/internal/progress"
	"github.com/conformadev/conforma/internal/report"
)

var (
	analyzeDocType  string
	analyzeNorms    []string
	analyzeStrategy string
	analyzeOut      string
	analyzeFormat   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a document file and print the compliance report",
	Long: `Runs the full analysis pipeline on a local text file and writes the
report to stdout or a file. This is the one-shot equivalent of submitting a
job to the server and fetching its result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		provider, err := buildProviderChain(cfg)
		if err != nil {
			return err
		}

		norms := kb.NewStore(cfg.KnowledgeDir)
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		jobs := job.NewStore(database)
		auditStore := audit.NewStore(database)
		retriever := evidence.NewRetriever(norms, 0, cfg.StrictEvidence)
		analyzer := analysis.NewAnalyzer(provider, "", 2*timeout)
		runner := job.NewRunner(jobs, retriever, analyzer, auditStore, runnerConfig(cfg))

		docType := analysis.DocumentType(strings.ToUpper(analyzeDocType))
		doc := analysis.Document{
			Text:      string(data),
			Type:      docType,
			NormCodes: analyzeNorms,
		}

		ctx := cmd.Context()
		j, err := runner.Submit(ctx, doc, job.Strategy(analyzeStrategy))
		if err != nil {
			return err
		}
		if verbose && j.Strategy != job.Strategy(analyzeStrategy) {
			fmt.Fprintf(os.Stderr, "Strategy upgraded to %s (document too large for a single call)\n", j.Strategy)
		}

		final, err := waitForJob(ctx, runner, jobs, j.ID)
		if err != nil {
			return err
		}

		result, err := jobs.Result(ctx, j.ID)
		if err != nil {
			return err
		}

		var out []byte
		switch analyzeFormat {
		case "json":
			out, err = json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
		case "html":
			out, err = report.HTML(result, final.DocumentType)
			if err != nil {
				return err
			}
		default:
			out = []byte(report.Markdown(result, final.DocumentType))
		}

		if analyzeOut == "" {
			fmt.Println(string(out))
			return nil
		}
		if err := os.WriteFile(analyzeOut, out, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", analyzeOut)
		return nil
	},
}

// waitForJob follows the job's progress updates until it terminates.
func waitForJob(ctx context.Context, runner *job.Runner, jobs *job.Store, id string) (*job.Job, error) {
	reporter := progress.NewReporter()
	reporter.Start(100)
	defer reporter.Finish()

	updates, unsubscribe := runner.Subscribe(id)
	defer unsubscribe()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = runner.Cancel(context.Background(), id)
			return nil, ctx.Err()
		case update, ok := <-updates:
			if ok {
				reporter.Update(update.Progress, string(update.Status))
			}
		case <-ticker.C:
		}

		j, err := jobs.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !j.Status.Terminal() {
			continue
		}
		switch j.Status {
		case job.StatusCompleted:
			reporter.Update(100, string(j.Status))
			return j, nil
		case job.StatusCancelled:
			return nil, fmt.Errorf("analysis cancelled")
		default:
			return nil, fmt.Errorf("analysis failed: %s", j.ErrorDetail)
		}
	}
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeDocType, "type", "t", "OUTRO", "document type (PGR, PCMSO, LTCAT, ASO, OUTRO)")
	analyzeCmd.Flags().StringSliceVarP(&analyzeNorms, "norms", "n", nil, "applicable norm codes (e.g. NR-01,NR-06)")
	analyzeCmd.Flags().StringVar(&analyzeStrategy, "strategy", "single", "analysis strategy (single or incremental)")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "write the report to a file instead of stdout")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "markdown", "output format (markdown, json, html)")
	rootCmd.AddCommand(analyzeCmd)
}
