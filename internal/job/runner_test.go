package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conformadev/conforma/internal/analysis"
	"github.com/conformadev/conforma/internal/audit"
	"github.com/conformadev/conforma/internal/chunker"
	"github.com/conformadev/conforma/internal/db"
	"github.com/conformadev/conforma/internal/evidence"
	"github.com/conformadev/conforma/internal/kb"
	"github.com/conformadev/conforma/internal/llm"
)

// stubProvider scripts completions per call.
type stubProvider struct {
	calls atomic.Int64
	reply func(call int64, req llm.CompletionRequest) (string, error)
}

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	call := s.calls.Add(1)
	content, err := s.reply(call, req)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: content, Model: req.Model, Provider: "stub"}, nil
}

func (s *stubProvider) Name() string { return "stub" }

const testDocument = `O PGR da empresa estabelece o inventário de riscos ocupacionais.
Todo trabalhador deve utilizar equipamento de protecao individual adequado à atividade.
O plano de ação define prazos e responsáveis pelas medidas de controle.`

type testHarness struct {
	runner *Runner
	store  *Store
	audit  *audit.Store
}

func newTestHarness(t *testing.T, provider llm.Provider, cfg Config) *testHarness {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	dir := t.TempDir()
	normText := "O equipamento de protecao individual deve possuir certificado de aprovacao valido e ser fornecido gratuitamente ao trabalhador."
	if err := os.WriteFile(filepath.Join(dir, "nr-06.txt"), []byte(normText), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(database)
	auditStore := audit.NewStore(database)
	retriever := evidence.NewRetriever(kb.NewStore(dir), 0, false)
	analyzer := analysis.NewAnalyzer(provider, "test-model", 5*time.Second)

	return &testHarness{
		runner: NewRunner(store, retriever, analyzer, auditStore, cfg),
		store:  store,
		audit:  auditStore,
	}
}

// waitTerminal polls until the job leaves the running states.
func waitTerminal(t *testing.T, store *Store, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if j.Status.Terminal() {
			return j
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return nil
}

// promptChunkID extracts the evidence chunk ID quoted back to the provider.
func promptChunkID(req llm.CompletionRequest) string {
	for _, msg := range req.Messages {
		if msg.Role != llm.RoleUser {
			continue
		}
		if idx := strings.Index(msg.Content, "[chunkId="); idx >= 0 {
			rest := msg.Content[idx+len("[chunkId="):]
			if end := strings.IndexAny(rest, " ]"); end > 0 {
				return rest[:end]
			}
		}
	}
	return ""
}

func TestSubmitRejectsEmptyDocument(t *testing.T) {
	h := newTestHarness(t, &stubProvider{}, DefaultConfig())
	_, err := h.runner.Submit(context.Background(), analysis.Document{Text: "   \n  "}, StrategySingle)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestSingleStrategyCompletes(t *testing.T) {
	provider := &stubProvider{reply: func(_ int64, req llm.CompletionRequest) (string, error) {
		chunkID := promptChunkID(req)
		return fmt.Sprintf(`{
			"score": 78,
			"summary": "Documento parcialmente conforme.",
			"strengths": ["Inventário de riscos presente"],
			"gaps": [{
				"descricao": "Falta registro de entrega de EPI",
				"severidade": "alta",
				"categoria": "EPI",
				"recomendacao": "Implantar ficha de entrega de EPI",
				"prazo": "30 dias",
				"normasRelacionadas": ["NR-06"],
				"evidencias": [{"chunkId": %q, "normCode": "NR-06", "content": "certificado de aprovacao"}]
			}]
		}`, chunkID), nil
	}}
	h := newTestHarness(t, provider, DefaultConfig())

	doc := analysis.Document{Text: testDocument, Type: analysis.DocTypePGR, NormCodes: []string{"NR-06"}}
	j, err := h.runner.Submit(context.Background(), doc, StrategySingle)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if j.Strategy != StrategySingle {
		t.Errorf("strategy = %q, want single", j.Strategy)
	}

	final := waitTerminal(t, h.store, j.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("status = %q (%s), want completed", final.Status, final.ErrorDetail)
	}
	if final.Progress != 100 {
		t.Errorf("progress = %d, want 100", final.Progress)
	}

	result, err := h.store.Result(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Score != 78 {
		t.Errorf("score = %v, want 78", result.Score)
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("gaps = %d, want 1 (evidence-backed gap must survive validation)", len(result.Gaps))
	}
	if result.Gaps[0].Severity != analysis.SeverityHigh {
		t.Errorf("severity = %q, want alta", result.Gaps[0].Severity)
	}
	if result.ConfidenceClass == "" {
		t.Error("confidence class not stamped on result")
	}
	if result.ProviderMeta.Provider != "stub" {
		t.Errorf("provider = %q, want stub", result.ProviderMeta.Provider)
	}
}

func TestSingleDegradesToIncrementalAboveCeiling(t *testing.T) {
	provider := &stubProvider{reply: func(_ int64, _ llm.CompletionRequest) (string, error) {
		return `{"score": 85, "summary": "ok"}`, nil
	}}
	cfg := Config{
		ChunkOptions: chunker.Options{ChunkSize: 60, OverlapSize: 5, MinChunkSize: 10},
		MaxChunks:    2,
		Concurrency:  2,
	}
	h := newTestHarness(t, provider, cfg)

	doc := analysis.Document{Text: testDocument, Type: analysis.DocTypePGR}
	j, err := h.runner.Submit(context.Background(), doc, StrategySingle)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if j.Strategy != StrategyIncremental {
		t.Fatalf("strategy = %q, want incremental after degrade", j.Strategy)
	}

	entries, err := h.audit.Query(context.Background(), audit.QueryFilter{Action: audit.ActionStrategyDegraded, ScopeID: j.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("strategy_degraded audit entries = %d, want 1", len(entries))
	}

	final := waitTerminal(t, h.store, j.ID)
	if final.Status != StatusCompleted {
		t.Errorf("status = %q (%s), want completed", final.Status, final.ErrorDetail)
	}
}

func TestOversizedDocumentRejected(t *testing.T) {
	cfg := Config{
		ChunkOptions:  chunker.Options{ChunkSize: 20, OverlapSize: 2, MinChunkSize: 5},
		MaxChunks:     1,
		HardMaxChunks: 2,
	}
	h := newTestHarness(t, &stubProvider{}, cfg)

	_, err := h.runner.Submit(context.Background(), analysis.Document{Text: testDocument}, StrategyIncremental)
	if err == nil {
		t.Fatal("oversized document accepted")
	}
	if !strings.Contains(err.Error(), "máximo permitido 2") {
		t.Errorf("error %q does not name the allowed ceiling", err)
	}
}

func TestAllChunksFailingFailsJob(t *testing.T) {
	provider := &stubProvider{reply: func(_ int64, _ llm.CompletionRequest) (string, error) {
		return "", errors.New("invalid api key")
	}}
	h := newTestHarness(t, provider, DefaultConfig())

	j, err := h.runner.Submit(context.Background(), analysis.Document{Text: testDocument}, StrategySingle)
	if err != nil {
		t.Fatal(err)
	}
	final := waitTerminal(t, h.store, j.ID)
	if final.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", final.Status)
	}
	if !strings.Contains(final.ErrorDetail, "invalid api key") {
		t.Errorf("error detail %q does not carry the cause", final.ErrorDetail)
	}
}

func TestPartialChunkFailureStillConsolidates(t *testing.T) {
	provider := &stubProvider{reply: func(call int64, _ llm.CompletionRequest) (string, error) {
		if call == 1 {
			return "", errors.New("status 500 internal error")
		}
		return `{"score": 70, "summary": "trecho analisado"}`, nil
	}}
	cfg := Config{
		ChunkOptions: chunker.Options{ChunkSize: 60, OverlapSize: 5, MinChunkSize: 10},
		MaxChunks:    40,
		Concurrency:  1, // deterministic call ordering
	}
	h := newTestHarness(t, provider, cfg)

	j, err := h.runner.Submit(context.Background(), analysis.Document{Text: testDocument}, StrategyIncremental)
	if err != nil {
		t.Fatal(err)
	}
	final := waitTerminal(t, h.store, j.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("status = %q (%s), want completed despite one failed chunk", final.Status, final.ErrorDetail)
	}

	result, err := h.store.Result(context.Background(), j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Metadata.FailedChunks != 1 {
		t.Errorf("failed chunks = %d, want 1", result.Metadata.FailedChunks)
	}
	if result.Metadata.TotalChunksProcessed < 1 {
		t.Errorf("total chunks processed = %d, want >= 1", result.Metadata.TotalChunksProcessed)
	}

	entries, err := h.audit.Query(context.Background(), audit.QueryFilter{Action: audit.ActionChunkFailed})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("chunk_failed audit entries = %d, want 1", len(entries))
	}
}

func TestUnsubstantiatedGapsAreDropped(t *testing.T) {
	provider := &stubProvider{reply: func(_ int64, _ llm.CompletionRequest) (string, error) {
		return `{
			"score": 60,
			"summary": "ok",
			"gaps": [{
				"descricao": "Achado sem evidência rastreável",
				"severidade": "critica",
				"categoria": "Geral",
				"evidencias": [{"chunkId": "fabricado-123", "normCode": "NR-06", "content": "inventado"}]
			}]
		}`, nil
	}}
	h := newTestHarness(t, provider, DefaultConfig())

	doc := analysis.Document{Text: testDocument, NormCodes: []string{"NR-06"}}
	j, err := h.runner.Submit(context.Background(), doc, StrategySingle)
	if err != nil {
		t.Fatal(err)
	}
	final := waitTerminal(t, h.store, j.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", final.Status)
	}

	result, err := h.store.Result(context.Background(), j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Gaps) != 0 {
		t.Errorf("gaps = %d, want 0 (fabricated evidence must not survive)", len(result.Gaps))
	}
	if result.Score <= 60 {
		t.Errorf("score = %v, want raised above 60 after discarding all gaps", result.Score)
	}

	entries, err := h.audit.Query(context.Background(), audit.QueryFilter{Action: audit.ActionGapsDiscarded})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("gaps_discarded audit entries = %d, want 1", len(entries))
	}
}

func TestCancelCompletedJobFails(t *testing.T) {
	provider := &stubProvider{reply: func(_ int64, _ llm.CompletionRequest) (string, error) {
		return `{"score": 95, "summary": "conforme"}`, nil
	}}
	h := newTestHarness(t, provider, DefaultConfig())

	j, err := h.runner.Submit(context.Background(), analysis.Document{Text: testDocument}, StrategySingle)
	if err != nil {
		t.Fatal(err)
	}
	waitTerminal(t, h.store, j.ID)

	if err := h.runner.Cancel(context.Background(), j.ID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestSubscribeObservesCompletion(t *testing.T) {
	provider := &stubProvider{reply: func(_ int64, _ llm.CompletionRequest) (string, error) {
		return `{"score": 88, "summary": "ok"}`, nil
	}}
	h := newTestHarness(t, provider, DefaultConfig())

	j, err := h.runner.Submit(context.Background(), analysis.Document{Text: testDocument}, StrategySingle)
	if err != nil {
		t.Fatal(err)
	}
	updates, unsubscribe := h.runner.Subscribe(j.ID)
	defer unsubscribe()

	var last Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				if last.Status != StatusCompleted {
					t.Fatalf("last update = %+v, want completed", last)
				}
				if last.Progress != 100 {
					t.Errorf("final progress = %d, want 100", last.Progress)
				}
				return
			}
			if u.Progress < last.Progress {
				t.Errorf("progress went backwards: %d after %d", u.Progress, last.Progress)
			}
			last = u
		case <-timeout:
			// The job may have finished before we subscribed.
			final := waitTerminal(t, h.store, j.ID)
			if final.Status != StatusCompleted {
				t.Fatalf("job never completed: %q", final.Status)
			}
			return
		}
	}
}
