package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hairtech/claimflow/internal/catalog"
	"github.com/hairtech/claimflow/internal/config"
	"github.com/hairtech/claimflow/internal/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the policy retrieval index and report its size",
	Long: `Chunk and embed every policy file so retrieval is warm, and report how
many chunks the index holds. Useful for verifying embedder credentials and
the policy corpus before processing claims.`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger()

	policyIndex, err := catalog.LoadPolicyIndex(cfg.Paths.PolicyIndexFile())
	if err != nil {
		return fmt.Errorf("load policy index: %w", err)
	}

	// No fallback wrapper here: a bad key should fail the build, not
	// degrade silently to the hash embedder.
	var embedder retrieval.Embedder
	if key, kerr := config.GetEmbeddingKey(cfg); kerr == nil {
		embedder = retrieval.NewOpenAIEmbedder(key, cfg.OpenAI.EmbeddingModel)
	} else {
		log.Warn().Msg("no OpenAI API key; building with the hash embedder")
		embedder = retrieval.NewHashEmbedder()
	}

	ix := retrieval.NewIndex(embedder, cfg.Paths.PoliciesDir(), policyIndex)
	if err := ix.Build(context.Background()); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	fmt.Printf("%s Indexed %d policy chunks from %s (embedder: %s)\n",
		color.GreenString("✓"), ix.Size(), cfg.Paths.PoliciesDir(), embedder.Name())
	return nil
}
