package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem"
	"github.com/poiesic/brandmem/ai"
	"github.com/poiesic/brandmem/ai/gemini"
	"github.com/poiesic/brandmem/ai/openai"
	"github.com/poiesic/brandmem/config"
	"github.com/poiesic/brandmem/reembed"
	"github.com/urfave/cli/v2"
)

func reembedCommand() *cli.Command {
	return &cli.Command{
		Name:  "reembed",
		Usage: "Copy memories into a new store with vectors from another embedding model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from-backend",
				Usage: "Source storage backend (badger, postgres)",
				Value: config.StorageBadger,
			},
			&cli.StringFlag{
				Name:     "from",
				Usage:    "Source database path or DSN",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "to-backend",
				Usage: "Destination storage backend (badger, postgres)",
				Value: config.StorageBadger,
			},
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Destination database path or DSN; must hold no memories",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "tenant",
				Usage: "Migrate only this tenant",
			},
			&cli.StringFlag{
				Name:  "embedding-backend",
				Usage: "Embedding backend (gemini, openai); defaults to configuration",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL; defaults to configuration",
			},
			&cli.StringFlag{
				Name:     "embedding-model",
				Usage:    "Embedding model name",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of memories read in each batch",
				Value: reembed.DefaultBatchSize,
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N memories",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum attempts per embedding call",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay between attempts",
				Value: 1 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "normalize",
				Usage: "Scale new vectors to unit length",
			},
		},
		Action: runReembed,
	}
}

func runReembed(c *cli.Context) error {
	ctx := c.Context

	reembedConfig := reembed.DefaultConfig()
	reembedConfig.BatchSize = c.Int("batch-size")
	reembedConfig.ReportInterval = c.Int("report-interval")
	reembedConfig.MaxRetries = c.Int("max-retries")
	reembedConfig.RetryDelay = c.Duration("retry-delay")
	reembedConfig.Normalize = c.Bool("normalize")

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if t := c.String("tenant"); t != "" {
		id, err := uuid.Parse(t)
		if err != nil {
			return fmt.Errorf("invalid tenant id: %w", err)
		}
		reembedConfig.TenantID = id
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	aiConfig := cfg.AIConfig()
	ep := aiConfig.Embedding
	if b := c.String("embedding-backend"); b != "" {
		ep.Backend = ai.Backend(b)
	}
	if h := c.String("embedding-host"); h != "" {
		ep.Host = h
	}
	ep.Model = c.String("embedding-model")
	if ep.Backend == ai.BackendGemini && ep.APIKey == "" {
		ep.APIKey = cfg.AI.APIKey
	}
	aiConfig.Embedding = ep
	aiConfig.Normalize()

	var embedder ai.Embedder
	switch aiConfig.Embedding.Backend {
	case ai.BackendGemini:
		embedder, err = gemini.NewEmbedder(ctx, aiConfig.Embedding)
	case ai.BackendOpenAI:
		embedder, err = openai.NewEmbedder(aiConfig.Embedding, aiConfig.BatchSize)
	default:
		err = fmt.Errorf("unknown embedding backend %q", aiConfig.Embedding.Backend)
	}
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	source, err := brandmem.OpenStores(ctx, config.StorageConfig{Backend: c.String("from-backend"), Path: c.String("from"), DSN: c.String("from")})
	if err != nil {
		return err
	}
	defer source.Close()

	dest, err := brandmem.OpenStores(ctx, config.StorageConfig{Backend: c.String("to-backend"), Path: c.String("to"), DSN: c.String("to")})
	if err != nil {
		return err
	}
	defer dest.Close()

	reembedder, err := reembed.NewReembedder(source.Memories, dest.Memories, embedder, reembedConfig, os.Stderr, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Source: %s (%s)\n", c.String("from"), c.String("from-backend"))
	fmt.Fprintf(os.Stderr, "Destination: %s (%s)\n", c.String("to"), c.String("to-backend"))
	fmt.Fprintf(os.Stderr, "Embedding: %s\n", aiConfig.Embedding)
	fmt.Fprintln(os.Stderr)

	summary, err := reembedder.Run(ctx)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Re-embedded %d memories across %d tenants in %s\n",
		summary.Memories, summary.Tenants, summary.Elapsed.Round(time.Millisecond))
	return nil
}
