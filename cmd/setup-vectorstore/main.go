package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katakuxiko/kbrelay/internal/config"
	"github.com/katakuxiko/kbrelay/internal/logger"
	"github.com/katakuxiko/kbrelay/internal/vectorstore"
)

var rootCmd = &cobra.Command{
	Use:   "setup-vectorstore",
	Short: "Create a vector store and upload the local docs folder into it",
	Long: `Create a vector store and upload every file in the docs folder into it.

The printed vector store ID goes into VECTOR_STORE_ID for the chat server.

Examples:
  setup-vectorstore
  setup-vectorstore --dir ./manuals --name "Support manuals"`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSetup,
}

func init() {
	rootCmd.Flags().String("dir", "", "directory with the documents (default $DOCS_DIR or ./docs)")
	rootCmd.Flags().String("name", vectorstore.DefaultName, "name of the vector store")
	rootCmd.Flags().Duration("poll-interval", vectorstore.DefaultPollInterval, "how often to check the upload batch")
	rootCmd.Flags().Duration("timeout", 30*time.Minute, "give up after this long")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runSetup(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	name, _ := cmd.Flags().GetString("name")
	every, _ := cmd.Flags().GetDuration("poll-interval")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireSetup(); err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.DocsDir
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	oaiCfg := openai.DefaultConfig(cfg.OpenAIKey)
	oaiCfg.BaseURL = cfg.OpenAIBaseURL
	client := openai.NewClientWithConfig(oaiCfg)

	res, err := vectorstore.NewUploader(client, log).Run(ctx, vectorstore.Options{
		Dir:          dir,
		Name:         name,
		PollInterval: every,
	})
	if err != nil {
		if res != nil && res.VectorStoreID != "" {
			log.Error("setup failed, vector store left in place",
				zap.String("vector_store_id", res.VectorStoreID), zap.Error(err))
		} else {
			log.Error("setup failed", zap.Error(err))
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "VECTOR_STORE_ID=%s\n", res.VectorStoreID)
	if res.BatchID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %s (completed %d, failed %d, total %d)\n",
			res.BatchID, res.Status, res.Counts.Completed, res.Counts.Failed, res.Counts.Total)
	}
	return nil
}
