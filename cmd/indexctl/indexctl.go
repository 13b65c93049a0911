package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-tutor-backend/internal/ai"
	"ai-tutor-backend/internal/config"
	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/store"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	rootCmd = &cobra.Command{
		Use:          "indexctl",
		Short:        "Operator tooling for the resource vector index and embeddings",
		SilenceUsage: true,
	}

	onlyMissing bool
	resourceID  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	reembedCmd.Flags().BoolVar(&onlyMissing, "only-missing", false, "only resources without an embedding")
	reembedCmd.Flags().StringVar(&resourceID, "id", "", "re-embed a single resource")

	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(reembedCmd)
}

// connect loads configuration and opens the database. The store must be
// MongoDB; the in-memory backend has no index to manage.
func connect() (*config.Config, *mongo.Client, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.StoreBackend != "mongo" {
		return nil, nil, fmt.Errorf("indexctl operates on MongoDB only (STORE_BACKEND=%s)", cfg.StoreBackend)
	}
	logger.InitLogger(cfg)

	client, err := config.ConnectMongoDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func newIndexManager(cfg *config.Config, db *mongo.Database) *store.IndexManager {
	return store.NewIndexManager(db, cfg.VectorDimensions,
		store.WithSearchIndexName(cfg.VectorIndexName),
		store.WithDropPolicy(store.DropPolicy(cfg.IndexDropPolicy)),
		store.WithTiming(cfg.IndexSettleDelay, cfg.IndexPollInterval, cfg.IndexReadyTimeout),
	)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Drop all search indexes on resources and recreate the vector index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, err := connect()
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		ctx, stop := signalContext(cmd)
		defer stop()
		// the ready timeout bounds the poll; the extra minute covers drop and create
		ctx, cancel := context.WithTimeout(ctx, cfg.IndexReadyTimeout+time.Minute)
		defer cancel()

		fmt.Printf("Rebuilding %s on %s (dimensions=%d, drop policy=%s)...\n",
			cfg.VectorIndexName, cfg.RedactedMongoURI(), cfg.VectorDimensions, cfg.IndexDropPolicy)
		if err := newIndexManager(cfg, client.Database(cfg.DBName)).Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}
		fmt.Println("Vector index rebuilt and queryable")
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify-index",
	Short: "Report whether the vector index exists and is queryable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, err := connect()
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		status, err := newIndexManager(cfg, client.Database(cfg.DBName)).Status(ctx)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(out))

		switch {
		case !status.Exists:
			return fmt.Errorf("index %s does not exist; run rebuild-index", status.Name)
		case !status.Queryable:
			return fmt.Errorf("index %s is %s and not queryable yet", status.Name, status.Status)
		case status.Dimensions != 0 && status.Dimensions != cfg.VectorDimensions:
			return fmt.Errorf("index %s has %d dimensions, configuration expects %d",
				status.Name, status.Dimensions, cfg.VectorDimensions)
		}
		fmt.Println("Vector index verified")
		return nil
	},
}

var reembedCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Recompute resource embeddings from name and description",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, err := connect()
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		ctx, stop := signalContext(cmd)
		defer stop()

		// no cache: the point is to recompute
		emb, closeEmbedder, err := ai.NewEmbedderFromConfig(ctx, cfg, nil, nil)
		if err != nil {
			return err
		}
		defer closeEmbedder()

		resources := store.New(client.Database(cfg.DBName), emb,
			store.WithIndexName(cfg.VectorIndexName),
			store.WithReembedWorkers(cfg.ReembedWorkers),
		).Resources()

		if resourceID != "" {
			found, err := resources.ReembedOne(ctx, resourceID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("resource %s not found", resourceID)
			}
			fmt.Printf("Resource %s re-embedded\n", resourceID)
			return nil
		}

		report, err := resources.Reembed(ctx, store.ReembedOptions{OnlyMissing: onlyMissing})
		fmt.Printf("Scanned: %d  Embedded: %d  Cleared: %d  Failed: %d\n",
			report.Scanned, report.Embedded, report.Cleared, report.Failed)
		if errors.Is(err, store.ErrReembedIncomplete) {
			return fmt.Errorf("rerun with --only-missing to retry failed resources: %w", err)
		}
		return err
	},
}
