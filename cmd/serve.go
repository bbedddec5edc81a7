package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conformadev/conforma/internal/analysis"
	"github.com/conformadev/conforma/internal/audit"
	"github.com/conformadev/conforma/internal/evidence"
	"github.com/conformadev/conforma/internal/idempotency"
	"github.com/conformadev/conforma/internal/job"
	"github.com/conformadev/conforma/internal/kb"
	"github.com/conformadev/conforma/internal/server"
)

var serveAllowAll bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis API server",
	Long: `Starts the HTTP server exposing the analysis pipeline: job submission
with idempotency keys, job status, websocket progress streaming, consolidated
results, HTML reports and the per-job audit trail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
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
		if stop, err := norms.Watch(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: norm directory not watched: %v\n", err)
		} else {
			defer stop()
		}

		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		jobs := job.NewStore(database)
		auditStore := audit.NewStore(database)
		retriever := evidence.NewRetriever(norms, 0, cfg.StrictEvidence)
		// Empty model: each provider in the chain resolves its own, so a
		// fallback never receives the primary's model name. Doubled timeout
		// leaves headroom for the fallback attempt.
		analyzer := analysis.NewAnalyzer(provider, "", 2*timeout)
		runner := job.NewRunner(jobs, retriever, analyzer, auditStore, runnerConfig(cfg))
		cache := idempotency.NewCache(database, time.Duration(cfg.IdempotencyTTLMinutes)*time.Minute)

		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: serveAllowAll,
		}, runner, jobs, auditStore, cache, norms)

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan os.Signal, 1)
		signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serveCmd)
}
