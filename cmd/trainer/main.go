// trainer fits the TB diagnostic delay pipeline on a CSV dataset and writes
// the model artifact.
//
// Usage:
//
//	trainer [--input tb_dummy_500.csv] [--output model_pipeline.json] [--config file.yaml]
//	trainer runs [--limit 20] [--id RUN_ID]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tbdelay/platform/pkg/common/config"
	"github.com/tbdelay/platform/pkg/common/database"
	"github.com/tbdelay/platform/pkg/common/kafka"
	"github.com/tbdelay/platform/pkg/common/logger"
	"github.com/tbdelay/platform/pkg/common/models"
	"github.com/tbdelay/platform/pkg/training"
)

var trainFlags struct {
	config string
	input  string
	output string
}

var runsFlags struct {
	limit int
	id    string
}

var rootCmd = &cobra.Command{
	Use:          "trainer",
	Short:        "Train the diagnostic delay classifier",
	SilenceUsage: true,
	RunE:         runTrain,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded training runs",
	RunE:  runListRuns,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&trainFlags.config, "config", "", "YAML configuration file")

	f := rootCmd.Flags()
	f.StringVar(&trainFlags.input, "input", "", "Dataset CSV path (default from configuration)")
	f.StringVar(&trainFlags.output, "output", "", "Artifact path (default from configuration)")

	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "Maximum number of runs to list")
	runsCmd.Flags().StringVar(&runsFlags.id, "id", "", "Show a single run by ID")
	rootCmd.AddCommand(runsCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(trainFlags.config)
	if err != nil {
		return err
	}
	input := cfg.DatasetPath
	if trainFlags.input != "" {
		input = trainFlags.input
	}
	output := cfg.ArtifactPath
	if trainFlags.output != "" {
		output = trainFlags.output
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var registry training.Registry
	if cfg.RegistryEnabled {
		repo, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		defer database.ClosePostgres()
		registry = repo
	}

	var publisher training.Publisher
	if cfg.TrainingEventsTopic != "" && len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.TrainingEventsTopic)
		defer producer.Close()
		publisher = producer
	}

	svc := training.NewService(training.OptionsFromConfig(cfg), registry, publisher)
	result, err := svc.Run(ctx, input, output)
	if err != nil {
		return err
	}
	result.WriteSummary(cmd.OutOrStdout())
	return nil
}

func runListRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(trainFlags.config)
	if err != nil {
		return err
	}
	repo, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer database.ClosePostgres()

	return showRuns(cmd.Context(), cmd.OutOrStdout(), repo, runsFlags.id, runsFlags.limit)
}

// runStore is the read side of the training registry.
type runStore interface {
	Get(ctx context.Context, runID uuid.UUID) (*training.RunModel, error)
	List(ctx context.Context, limit int) ([]training.RunModel, error)
}

func showRuns(ctx context.Context, w io.Writer, store runStore, id string, limit int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if id != "" {
		runID, err := uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", id, err)
		}
		run, err := store.Get(ctx, runID)
		if err != nil {
			return fmt.Errorf("get training run %s: %w", runID, err)
		}
		return enc.Encode(training.ToDomain(run))
	}

	runs, err := store.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("list training runs: %w", err)
	}
	out := make([]models.TrainingRun, 0, len(runs))
	for i := range runs {
		out = append(out, training.ToDomain(&runs[i]))
	}
	return enc.Encode(out)
}

func openRegistry(cfg *config.Config) (*training.Repository, error) {
	db, err := database.GetPostgres(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect training registry: %w", err)
	}
	repo := training.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("migrate training registry: %w", err)
	}
	return repo, nil
}

func main() {
	logger.Init()
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("trainer failed")
		os.Exit(1)
	}
}
