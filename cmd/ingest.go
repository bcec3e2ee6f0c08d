package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/ingest"
	"github.com/amtly/amtly/internal/progress"
	"github.com/amtly/amtly/internal/walker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index official documents for semantic search",
	Long: `Walks a directory of PDFs, scans and text guides, extracts their text
(with OCR for images), splits it into chunks and stores the embeddings in
the document index. Unchanged files are skipped on later runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("force", false, "re-ingest files whose content is unchanged")
	ingestCmd.Flags().Bool("dry-run", false, "list the files that would be ingested")
	ingestCmd.Flags().Int("concurrency", 0, "parallel extractions (overrides ingest.concurrency)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = cfg.Ingest.Concurrency
	}

	files, err := walker.Walk(walker.WalkerConfig{
		RootDir:     args[0],
		Include:     cfg.Ingest.Include,
		Exclude:     cfg.Ingest.Exclude,
		MaxFileSize: cfg.Upload.MaxFileSize,
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}
	if len(files) == 0 {
		fmt.Printf("No documents found under %s.\n", args[0])
		return nil
	}

	if dryRun {
		for _, f := range files {
			fmt.Printf("%-8s %8d  %s\n", f.Kind, f.Size, f.RelPath)
		}
		fmt.Printf("\n%d files would be ingested.\n", len(files))
		return nil
	}

	store, _, err := openVectorStore(ctx, cfg)
	if err != nil {
		return err
	}

	p := ingest.NewPipeline(
		createExtractorFromConfig(cfg),
		store,
		createResolverFromConfig(cfg),
		cfg.Search.VectorDBDir,
		ingest.Options{
			ChunkSize:    cfg.Ingest.ChunkSize,
			ChunkOverlap: cfg.Ingest.ChunkOverlap,
			Concurrency:  concurrency,
			Force:        force,
		},
		logger,
	)
	p.SetReporter(progress.NewReporter("Ingesting"))

	result, err := p.Run(ctx, files)
	if err != nil {
		return err
	}

	for _, e := range result.Errors {
		logger.Warn("document skipped", zap.Error(e))
	}

	fmt.Printf("\nIngested %d files (%d chunks), %d unchanged, %d failed in %s.\n",
		result.FilesProcessed, result.Chunks, result.FilesSkipped, result.FilesFailed,
		result.Duration.Round(time.Millisecond))
	fmt.Printf("Index: %s (%d chunks in %q)\n", cfg.Search.VectorDBDir, store.Count(), cfg.Search.Collection)
	return nil
}
