package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/conformadev/conforma/internal/analysis"
	"github.com/conformadev/conforma/internal/audit"
	"github.com/conformadev/conforma/internal/chunker"
	"github.com/conformadev/conforma/internal/confidence"
	"github.com/conformadev/conforma/internal/evidence"
	"github.com/conformadev/conforma/internal/llm"
)

// Config tunes the pipeline runner.
type Config struct {
	ChunkOptions chunker.Options
	// MaxChunks is the ceiling above which a requested single-call analysis
	// is silently upgraded to incremental. The upgrade is audit-logged.
	MaxChunks int
	// HardMaxChunks is the absolute ceiling; a document projecting more
	// chunks than this is rejected at submission.
	HardMaxChunks int
	// Concurrency is the number of chunk workers per job.
	Concurrency int
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() Config {
	return Config{
		ChunkOptions:  chunker.DefaultOptions(),
		MaxChunks:     40,
		HardMaxChunks: 200,
		Concurrency:   3,
	}
}

// Update is one progress notification delivered to subscribers.
type Update struct {
	JobID    string `json:"jobId"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
}

// Runner drives jobs through the analysis pipeline. It owns the in-flight
// cancellation handles and the progress subscriptions; all persistent state
// goes through the Store.
type Runner struct {
	store     *Store
	retriever *evidence.Retriever
	analyzer  *analysis.Analyzer
	audit     *audit.Store
	cfg       Config

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	watchers map[string][]chan Update
}

// NewRunner wires the pipeline together.
func NewRunner(store *Store, retriever *evidence.Retriever, analyzer *analysis.Analyzer, auditStore *audit.Store, cfg Config) *Runner {
	if cfg.ChunkOptions.ChunkSize <= 0 {
		cfg.ChunkOptions = chunker.DefaultOptions()
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = DefaultConfig().MaxChunks
	}
	if cfg.HardMaxChunks <= 0 {
		cfg.HardMaxChunks = DefaultConfig().HardMaxChunks
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	return &Runner{
		store:     store,
		retriever: retriever,
		analyzer:  analyzer,
		audit:     auditStore,
		cfg:       cfg,
		cancels:   make(map[string]context.CancelFunc),
		watchers:  make(map[string][]chan Update),
	}
}

// Submit validates the document, picks the effective strategy and starts the
// job asynchronously. It returns as soon as the job record exists.
func (r *Runner) Submit(ctx context.Context, doc analysis.Document, strategy Strategy) (*Job, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, ErrEmptyDocument
	}
	if strategy == "" {
		strategy = StrategySingle
	}

	projected := len(chunker.Split(doc.Text, r.cfg.ChunkOptions))
	if projected > r.cfg.HardMaxChunks {
		return nil, fmt.Errorf("documento excede o limite de processamento: %d chunks projetados, máximo permitido %d",
			projected, r.cfg.HardMaxChunks)
	}

	degraded := false
	if strategy == StrategySingle && projected > r.cfg.MaxChunks {
		strategy = StrategyIncremental
		degraded = true
	}

	j := &Job{
		ID:           uuid.New().String(),
		Status:       StatusPending,
		Progress:     0,
		Strategy:     strategy,
		DocumentType: doc.Type,
		NormCodes:    doc.NormCodes,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.store.Create(ctx, j); err != nil {
		return nil, err
	}

	r.logAudit(ctx, audit.Entry{
		ActorType: audit.ActorCaller,
		Action:    audit.ActionJobSubmitted,
		Scope:     audit.ScopeJob,
		ScopeID:   j.ID,
		Summary:   fmt.Sprintf("análise %s submetida para documento %s", strategy, doc.Type),
	})
	if degraded {
		r.logAudit(ctx, audit.Entry{
			Action:  audit.ActionStrategyDegraded,
			Scope:   audit.ScopeJob,
			ScopeID: j.ID,
			Summary: "estratégia única rebaixada para incremental",
			Detail:  fmt.Sprintf("%d chunks projetados excedem o limite de %d para chamada única", projected, r.cfg.MaxChunks),
		})
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancels[j.ID] = cancel
	r.mu.Unlock()

	go r.run(runCtx, j.ID, doc, strategy)
	return j, nil
}

// Cancel requests cooperative cancellation of a job. Workers stop at the next
// chunk boundary. Cancelling a completed job returns ErrAlreadyCompleted;
// cancelling an already failed or cancelled job is a no-op.
func (r *Runner) Cancel(ctx context.Context, id string) error {
	if err := r.store.Cancel(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}

	r.logAudit(ctx, audit.Entry{
		ActorType: audit.ActorCaller,
		Action:    audit.ActionJobCancelled,
		Scope:     audit.ScopeJob,
		ScopeID:   id,
		Summary:   "cancelamento solicitado pelo chamador",
	})
	r.broadcast(id, StatusCancelled, 0)
	return nil
}

// Subscribe returns a channel receiving progress updates for a job, plus an
// unsubscribe function. The channel is closed when the job reaches a terminal
// state or on unsubscribe.
func (r *Runner) Subscribe(id string) (<-chan Update, func()) {
	ch := make(chan Update, 16)
	r.mu.Lock()
	r.watchers[id] = append(r.watchers[id], ch)
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		chans := r.watchers[id]
		for i, c := range chans {
			if c == ch {
				r.watchers[id] = append(chans[:i], chans[i+1:]...)
				close(c)
				return
			}
		}
	}
	return ch, unsubscribe
}

// broadcast notifies subscribers. Slow subscribers drop updates rather than
// blocking the pipeline. A terminal status closes and removes all channels.
func (r *Runner) broadcast(id string, status Status, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.watchers[id] {
		select {
		case ch <- Update{JobID: id, Status: status, Progress: progress}:
		default:
		}
	}
	if status.Terminal() {
		for _, ch := range r.watchers[id] {
			close(ch)
		}
		delete(r.watchers, id)
	}
}

// advance persists a progress milestone and notifies subscribers. Returns
// false when the job has already reached a terminal state.
func (r *Runner) advance(ctx context.Context, id string, status Status, progress int) bool {
	updated, err := r.store.UpdateProgress(ctx, id, status, progress)
	if err != nil {
		log.Printf("job %s: progress update failed: %v", id, err)
		return false
	}
	if updated {
		r.broadcast(id, status, progress)
	}
	return updated
}

// chunkOutcome is the per-chunk slot filled by exactly one worker.
type chunkOutcome struct {
	result  *analysis.ChunkResult
	err     error
	missing []string
}

func (r *Runner) run(ctx context.Context, id string, doc analysis.Document, strategy Strategy) {
	defer func() {
		r.mu.Lock()
		if cancel, ok := r.cancels[id]; ok {
			cancel()
			delete(r.cancels, id)
		}
		r.mu.Unlock()
	}()

	bg := context.Background() // store writes survive job cancellation

	if err := r.store.MarkStarted(bg, id); err != nil {
		log.Printf("job %s: %v", id, err)
	}
	if !r.advance(bg, id, StatusExtracting, progressExtracting) {
		return
	}

	var chunks []chunker.Chunk
	if strategy == StrategySingle {
		chunks = chunker.Split(doc.Text, chunker.Options{ChunkSize: len(doc.Text)})
	} else {
		chunks = chunker.Split(doc.Text, r.cfg.ChunkOptions)
	}
	if len(chunks) == 0 {
		r.fail(bg, id, ErrEmptyDocument.Error())
		return
	}

	if !r.advance(bg, id, StatusAnalyzing, progressAnalyzing) {
		return
	}

	outcomes := make([]chunkOutcome, len(chunks))
	var cursor, done atomic.Int64
	var wg sync.WaitGroup

	workers := r.cfg.Concurrency
	if workers > len(chunks) {
		workers = len(chunks)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(chunks) {
					return
				}
				// Cooperative cancellation at chunk boundaries only;
				// an in-flight provider call runs to completion.
				if ctx.Err() != nil {
					return
				}
				outcomes[idx] = r.processChunk(ctx, id, doc, chunks[idx])
				completed := int(done.Add(1))
				p := progressAnalyzing + (progressConsolidating-progressAnalyzing)*completed/len(chunks)
				r.advance(bg, id, StatusAnalyzing, p)
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Cancel already moved the job to cancelled.
		return
	}

	var (
		survivors    []analysis.ChunkResult
		failures     []string
		missingUnion []string
		parseOK      = true
	)
	for i, out := range outcomes {
		if out.err != nil {
			failures = append(failures, fmt.Sprintf("chunk %d: %v", i, out.err))
			if errors.Is(out.err, llm.ErrMalformedReply) {
				parseOK = false
			}
			continue
		}
		if out.result != nil {
			survivors = append(survivors, *out.result)
		}
		for _, code := range out.missing {
			missingUnion = appendMissing(missingUnion, code)
		}
	}

	if len(survivors) == 0 {
		r.fail(bg, id, "todos os chunks falharam: "+strings.Join(failures, "; "))
		return
	}

	if !r.advance(bg, id, StatusConsolidating, progressConsolidating) {
		return
	}

	final, err := analysis.Consolidate(survivors, analysis.Metadata{FailedChunks: len(failures)})
	if err != nil {
		r.fail(bg, id, err.Error())
		return
	}

	r.stampConfidence(bg, id, doc, final, parseOK, missingUnion)

	payload, err := json.Marshal(final)
	if err != nil {
		r.fail(bg, id, fmt.Sprintf("serializando resultado: %v", err))
		return
	}
	if updated, err := r.store.Complete(bg, id, string(payload)); err != nil {
		log.Printf("job %s: completing: %v", id, err)
	} else if updated {
		r.broadcast(id, StatusCompleted, progressDone)
	}
}

// processChunk runs retrieval, analysis and evidence validation for one chunk.
func (r *Runner) processChunk(ctx context.Context, jobID string, doc analysis.Document, chunk chunker.Chunk) chunkOutcome {
	retrieval, err := r.retriever.Retrieve(doc.NormCodes, chunk.Content, chunk.ID)
	if err != nil {
		r.auditChunkFailure(ctx, jobID, chunk.ID, err)
		return chunkOutcome{err: fmt.Errorf("recuperando evidências: %w", err)}
	}

	start := time.Now()
	result, err := r.analyzer.AnalyzeChunk(ctx, chunk.Content, doc.NormCodes, retrieval.Evidence, doc.Type)
	if err != nil {
		r.auditChunkFailure(ctx, jobID, chunk.ID, err)
		return chunkOutcome{err: err, missing: retrieval.MissingNormCodes}
	}

	validIDs := make(map[string]struct{}, len(retrieval.Evidence))
	for _, ev := range retrieval.Evidence {
		validIDs[ev.ChunkID] = struct{}{}
	}
	report := evidence.Validate(result, validIDs)
	if report.RemovedCount > 0 {
		r.logAudit(ctx, audit.Entry{
			Action:  audit.ActionGapsDiscarded,
			Scope:   audit.ScopeChunk,
			ScopeID: chunk.ID,
			Summary: fmt.Sprintf("%d de %d gaps descartados por falta de evidência rastreável", report.RemovedCount, report.OriginalCount),
			Detail:  "job " + jobID,
		})
	}

	return chunkOutcome{
		result: &analysis.ChunkResult{
			Chunk:   chunk,
			Result:  result,
			Elapsed: time.Since(start),
		},
		missing: retrieval.MissingNormCodes,
	}
}

// stampConfidence computes the confidence report for the consolidated result
// and writes it onto the result in place.
func (r *Runner) stampConfidence(ctx context.Context, jobID string, doc analysis.Document, final *analysis.Result, parseOK bool, missing []string) {
	var cited []string
	gapsWithEvidence := 0
	for _, gap := range final.Gaps {
		for _, code := range gap.RelatedNorms {
			cited = appendMissing(cited, code)
		}
		if len(gap.Evidence) > 0 {
			gapsWithEvidence++
		}
	}
	sort.Strings(missing)

	report := confidence.Score(confidence.Signals{
		ParseOK:           parseOK,
		NormAgreement:     confidence.Jaccard(cited, confidence.InferNorms(doc.Text)),
		TotalGaps:         len(final.Gaps),
		GapsWithEvidence:  gapsWithEvidence,
		TotalNorms:        len(doc.NormCodes),
		MissingNormCodes:  missing,
		FallbackTriggered: final.ProviderMeta.FallbackTriggered,
	})

	if final.ProviderMeta.FallbackTriggered {
		r.logAudit(ctx, audit.Entry{
			Action:  audit.ActionFallbackTriggered,
			Scope:   audit.ScopeProvider,
			ScopeID: final.ProviderMeta.Provider,
			Summary: "provedor de fallback utilizado durante a análise",
			Detail:  "job " + jobID,
		})
	}

	final.ConfidenceScore = report.Score
	final.ConfidenceClass = string(report.Class)
	final.ReliabilityAlerts = report.Alerts
}

func (r *Runner) fail(ctx context.Context, id, detail string) {
	if updated, err := r.store.Fail(ctx, id, detail); err != nil {
		log.Printf("job %s: failing: %v", id, err)
	} else if updated {
		r.broadcast(id, StatusFailed, 0)
	}
}

func (r *Runner) auditChunkFailure(ctx context.Context, jobID, chunkID string, cause error) {
	r.logAudit(ctx, audit.Entry{
		Action:  audit.ActionChunkFailed,
		Scope:   audit.ScopeChunk,
		ScopeID: chunkID,
		Summary: "falha na análise do chunk",
		Detail:  fmt.Sprintf("job %s: %v", jobID, cause),
	})
}

func (r *Runner) logAudit(ctx context.Context, entry audit.Entry) {
	if r.audit == nil {
		return
	}
	if err := r.audit.Log(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("audit: %v", err)
	}
}

func appendMissing(list []string, code string) []string {
	for _, c := range list {
		if c == code {
			return list
		}
	}
	return append(list, code)
}
