package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fly-io/162719/internal/config"
	"github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tracked volumes and their status",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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

	volumes, err := st.ListVolumes(context.Background())
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(volumes) == 0 {
		fmt.Println("No volumes found")
		return nil
	}

	fmt.Printf("%-40s %-12s %-8s %-40s\n", "VOLUME ID", "STATUS", "COMPLETE", "ERROR")
	fmt.Println("--------------------------------------------------------------------------------------------")
	for _, v := range volumes {
		errMsg := v.ErrorMessage
		if errMsg == "" {
			errMsg = "-"
		}
		fmt.Printf("%-40s %-12s %-8t %-40s\n", v.VolumeID, v.Status, v.IsComplete, errMsg)
	}

	return nil
}
