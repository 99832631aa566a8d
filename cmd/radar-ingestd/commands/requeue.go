package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fly-io/162719/internal/config"
	"github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/store"
)

var requeueProductType string

var requeueCmd = &cobra.Command{
	Use:   "requeue <volume-id>",
	Short: "Force a failed volume (or product, with --product-type) back to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequeue,
}

func init() {
	requeueCmd.Flags().StringVar(&requeueProductType, "product-type", "", "Requeue this volume's product instead of the volume itself")
	rootCmd.AddCommand(requeueCmd)
}

func runRequeue(cmd *cobra.Command, args []string) error {
	volumeID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	if err := ensureParentDir(cfg.StateStorePath); err != nil {
		return err
	}

	st, err := store.Open(cfg.StateStorePath)
	if err != nil {
		return errors.Wrap(err, "state store open failed")
	}
	defer st.Close()

	ctx := context.Background()

	if requeueProductType != "" {
		if err := st.RequeueProduct(ctx, volumeID, requeueProductType); err != nil {
			return errors.Wrap(err, "requeue product failed")
		}
		slog.Info("requeued_product", "volume_id", volumeID, "product_type", requeueProductType)
		return nil
	}

	if err := st.RequeueVolume(ctx, volumeID); err != nil {
		return errors.Wrap(err, "requeue volume failed")
	}
	slog.Info("requeued_volume", "volume_id", volumeID)
	return nil
}
