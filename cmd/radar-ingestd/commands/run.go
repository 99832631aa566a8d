package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/superfly/fsm"

	"github.com/fly-io/162719/internal/config"
	"github.com/fly-io/162719/pkg/assemble"
	"github.com/fly-io/162719/pkg/decode"
	"github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/fetch"
	"github.com/fly-io/162719/pkg/httpstats"
	"github.com/fly-io/162719/pkg/remote"
	"github.com/fly-io/162719/pkg/render"
	"github.com/fly-io/162719/pkg/retention"
	"github.com/fly-io/162719/pkg/stats"
	"github.com/fly-io/162719/pkg/store"
	"github.com/fly-io/162719/pkg/supervisor"
)

var httpAddr string
var fsmDBPath string
var fsmMaxRetries int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion pipeline: fetch, assemble, decode, render",
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "Address for /healthz, /readyz, /metrics")
	runCmd.Flags().StringVar(&fsmDBPath, "fsm-db-path", ".artifacts/fsm.db", "Decode FSM BoltDB path")
	runCmd.Flags().IntVar(&fsmMaxRetries, "fsm-max-retries", 5, "Bounded retry count before a volume decode is marked permanently failed")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	if err := ensureDirectories(cfg.RawDownloadDir, cfg.ContainerDir, cfg.ProductDir, cfg.ResourcesDir); err != nil {
		return err
	}
	if err := ensureParentDir(cfg.StateStorePath); err != nil {
		return errors.Wrap(err, "failed to create state store directory")
	}

	st, err := store.Open(cfg.StateStorePath)
	if err != nil {
		return errors.Wrap(err, "state store open failed")
	}
	defer st.Close()

	remoteClient, err := remote.NewClient(ctx, cfg.RemoteHost, cfg.RemoteUsername, cfg.RemotePassword, cfg.RemoteBucket, cfg.RemoteRegion)
	if err != nil {
		return errors.Wrap(err, "remote client init failed")
	}

	walkStart := cfg.WindowStart
	if cfg.ResumeFromLatestObservation {
		if latest, ok, err := st.LatestObservationInstant(ctx, cfg.Radar); err != nil {
			slog.Warn("resume_from_latest_observation_lookup_failed", "error", err)
		} else if ok && latest.After(walkStart) {
			walkStart = latest
		}
	}
	walker := remote.NewCalendarWalker(remoteClient, cfg.RemoteBasePath, cfg.Radar, cfg.FileExtension, walkStart, cfg.WindowEnd)

	asm := assemble.NewAssembler(st, cfg.ExpectedFields, cfg.AllowIncomplete)
	fetchWorker := fetch.NewWorker(st, remoteClient, walker, asm, cfg.RawDownloadDir, cfg.ResumePartial, cfg.MaxConcurrentDownloads, cfg.PollInterval)

	fsmManager, err := fsm.New(fsm.Config{DBPath: fsmDBPath})
	if err != nil {
		return errors.Wrap(err, "decode FSM manager init failed")
	}
	defer fsmManager.Shutdown(10 * time.Second)

	decodeMachine := decode.NewMachine(st, decode.UnimplementedDecoder{}, decode.UnimplementedContainerCodec{}, cfg.ResourcesDir, cfg.ContainerDir, fsmMaxRetries)
	decodeStart, _, err := decodeMachine.Register(ctx, fsmManager)
	if err != nil {
		return errors.Wrap(err, "decode FSM register failed")
	}
	decodeWorker := decode.NewWorker(st, fsmManager, decodeStart, cfg.MaxConcurrentDecodes, cfg.PollInterval)

	renderWorker := render.NewWorker(st, decode.UnimplementedContainerCodec{}, render.UnimplementedPlotter{}, cfg.ProductDir, cfg.ProductType, render.DefaultFieldSpecs, render.DefaultColmaxThresholds, cfg.AddColmax, cfg.MaxConcurrentRenders, cfg.PollInterval)

	metrics := stats.NewMetrics()
	sweeper := retention.NewSweeper(st, metrics, cfg.StuckTimeout, cfg.StuckTimeout/3)

	sup := supervisor.New(st, []supervisor.Worker{fetchWorker, decodeWorker, renderWorker}, cfg.WindowEnd, 10*time.Second)

	httpServer := httpstats.NewServer(httpAddr, sup)
	go func() {
		if err := httpServer.Start(); err != nil {
			slog.Info("http_server_stopped", "error", err)
		}
	}()

	go sweeper.Run(ctx)

	metrics.PipelineRunning.Set(1)
	sup.Run(ctx)
	metrics.PipelineRunning.Set(0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	slog.Info("radar_ingestd_stopped")
	return nil
}
