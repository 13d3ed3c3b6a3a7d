package main

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/hairtech/claimflow/internal/config"
)

func TestNewEmbedder(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := config.Default()
	if got := newEmbedder(cfg, zerolog.Nop()).Name(); got != "simple-hash" {
		t.Errorf("embedder without key = %q, want simple-hash", got)
	}

	// With a key the semantic embedder is selected; its wrapper reports the
	// primary model name and degrades to the hash embedder on API failure.
	cfg.OpenAI.APIKey = "sk-test-not-real"
	cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	if got := newEmbedder(cfg, zerolog.Nop()).Name(); got != "text-embedding-3-small" {
		t.Errorf("embedder with key = %q, want the configured model", got)
	}
}
