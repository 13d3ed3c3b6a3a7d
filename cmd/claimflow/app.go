package main

import (
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/hairtech/claimflow/internal/advisor"
	"github.com/hairtech/claimflow/internal/catalog"
	"github.com/hairtech/claimflow/internal/config"
	"github.com/hairtech/claimflow/internal/decision"
	"github.com/hairtech/claimflow/internal/dispatch"
	"github.com/hairtech/claimflow/internal/extract"
	"github.com/hairtech/claimflow/internal/inbox"
	"github.com/hairtech/claimflow/internal/pipeline"
	"github.com/hairtech/claimflow/internal/render"
	"github.com/hairtech/claimflow/internal/retrieval"
	"github.com/hairtech/claimflow/internal/state"
)

var verboseLogging bool

// app bundles the wired pipeline and its collaborators for one command run.
type app struct {
	cfg      *config.Config
	store    *state.DB
	pipeline *pipeline.Pipeline
	inbox    *inbox.Inbox
	advisor  *advisor.ModelAdvisor
	log      zerolog.Logger
}

// newApp loads configuration and wires every pipeline collaborator. The
// model advisor and semantic retrieval degrade gracefully: without an
// Anthropic key the pipeline runs fully deterministic, and without an
// OpenAI key retrieval falls back to the hash embedder.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := newLogger()

	store, err := state.Open(cfg.Paths.StateDBFile())
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}

	cat, err := catalog.LoadCatalog(cfg.Paths.ProductCatalogFile())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load product catalog: %w", err)
	}
	policyIndex, err := catalog.LoadPolicyIndex(cfg.Paths.PolicyIndexFile())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load policy index: %w", err)
	}

	pcfg := pipeline.Config{
		Store:     store,
		Engine:    decision.NewEngine(nil, cfg.Warranty.Days),
		Resolver:  catalog.NewResolver(cat, policyIndex, cfg.Paths.PoliciesDir()),
		Extractor: extract.NewExtractor(cat),
		Renderer:  render.NewRenderer(cfg.Paths.OutboxDir(), nil),
		Logger:    log,
	}

	mdl := buildAdvisor(cfg, log)
	if mdl != nil {
		pcfg.Advisor = mdl
		pcfg.Engine = decision.NewEngine(mdl, cfg.Warranty.Days)
	}
	pcfg.Retriever = buildRetriever(cfg, policyIndex, log)
	pcfg.Dispatcher = dispatch.NewDispatcher(store, buildProvider(cfg))

	return &app{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline.New(pcfg),
		inbox:    inbox.New(cfg.Paths.InboxDir()),
		advisor:  mdl,
		log:      log,
	}, nil
}

func (a *app) Close() error {
	a.logUsage()
	return a.store.Close()
}

// logUsage reports the model token totals accumulated over this run.
func (a *app) logUsage() {
	if a.advisor == nil {
		return
	}
	input, output, calls := a.advisor.Usage()
	if calls == 0 {
		return
	}
	a.log.Debug().Int("api_calls", calls).
		Int64("input_tokens", input).Int64("output_tokens", output).
		Msg("model usage")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verboseLogging {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// buildAdvisor returns nil when no model credentials are available.
func buildAdvisor(cfg *config.Config, log zerolog.Logger) *advisor.ModelAdvisor {
	key, err := config.GetAPIKey(cfg)
	if err != nil && !cfg.Anthropic.UseBedrock {
		log.Warn().Msg("no Anthropic API key; running with deterministic fallbacks only")
		return nil
	}

	client, err := advisor.NewClient(advisor.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        key,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		log.Warn().Err(err).Msg("model advisor unavailable; running with deterministic fallbacks only")
		return nil
	}
	return advisor.New(client, cfg.Anthropic.Timeout)
}

func buildRetriever(cfg *config.Config, policyIndex *catalog.PolicyIndex, log zerolog.Logger) *retrieval.Retriever {
	policiesDir := cfg.Paths.PoliciesDir()
	if _, err := os.Stat(policiesDir); err != nil {
		log.Warn().Str("dir", policiesDir).Msg("policies directory missing; policy retrieval disabled")
		return nil
	}

	embedder := newEmbedder(cfg, log)
	return retrieval.NewRetriever(retrieval.NewIndex(embedder, policiesDir, policyIndex))
}

// newEmbedder picks the semantic embedder when an OpenAI key is configured,
// wrapped so an API failure degrades to the hash embedder instead of leaving
// retrieval broken for the life of the process.
func newEmbedder(cfg *config.Config, log zerolog.Logger) retrieval.Embedder {
	key, err := config.GetEmbeddingKey(cfg)
	if err != nil {
		log.Debug().Msg("no OpenAI API key; using hash embedder for retrieval")
		return retrieval.NewHashEmbedder()
	}
	return retrieval.WithFallback(retrieval.NewOpenAIEmbedder(key, cfg.OpenAI.EmbeddingModel))
}

func buildProvider(cfg *config.Config) dispatch.Provider {
	if cfg.Send.Mode != "smtp" {
		return dispatch.ManualProvider{}
	}
	return dispatch.NewSMTPProvider(dispatch.SMTPConfig{
		Host:     cfg.Send.SMTPHost,
		Port:     cfg.Send.SMTPPort,
		Username: cfg.Send.SMTPUsername,
		Password: cfg.Send.SMTPPassword,
		From:     cfg.Send.SMTPFrom,
		UseTLS:   cfg.Send.SMTPUseTLS,
	})
}
