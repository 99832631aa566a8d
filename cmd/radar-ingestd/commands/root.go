package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "radar-ingestd",
	Short: "Radar volume ingestion, decode, and rendering pipeline",
	Long:  `Fetches radar observation files from a remote archive, assembles them into volumes, decodes and aligns sub-products into a canonical container, and renders per-elevation rasters.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("remote-host", "", "Remote file server endpoint")
	rootCmd.PersistentFlags().String("remote-username", "", "Remote file server username")
	rootCmd.PersistentFlags().String("remote-password", "", "Remote file server password")
	rootCmd.PersistentFlags().String("remote-bucket", "radar-archive", "Remote bucket/share name")
	rootCmd.PersistentFlags().String("remote-region", "us-east-1", "Remote endpoint region")
	rootCmd.PersistentFlags().String("remote-base-path", "/", "Remote base path above the per-radar calendar hierarchy")
	rootCmd.PersistentFlags().String("radar", "", "Radar site identifier")
	rootCmd.PersistentFlags().String("file-extension", ".BUFR", "Remote filename extension to filter the walker to")
	rootCmd.PersistentFlags().String("window-start", "", "RFC3339 instant to begin walking from")
	rootCmd.PersistentFlags().String("window-end", "", "RFC3339 instant to stop at; empty means continuous operation")
	rootCmd.PersistentFlags().String("raw-download-dir", ".artifacts/raw", "Local directory for downloaded source files")
	rootCmd.PersistentFlags().String("container-dir", ".artifacts/containers", "Local directory for written containers")
	rootCmd.PersistentFlags().String("product-dir", ".artifacts/products", "Local directory for rendered products")
	rootCmd.PersistentFlags().String("resources-dir", ".artifacts/resources", "Directory of decoder-side resource files")
	rootCmd.PersistentFlags().String("state-store-path", ".artifacts/catalogue.db", "State store SQLite path")
	rootCmd.PersistentFlags().String("product-type", "image", "Product type name this deployment renders")

	// Poll intervals, concurrency caps, and the stuck timeout are tuned via
	// config file or RADAR_* environment variables only — their sensible
	// defaults live in config.Load, and a persistent flag default can only
	// shadow that default, never usefully override "unset".
	for _, name := range []string{
		"remote-host", "remote-username", "remote-password", "remote-bucket", "remote-region", "remote-base-path",
		"radar", "file-extension", "window-start", "window-end",
		"raw-download-dir", "container-dir", "product-dir", "resources-dir", "state-store-path",
		"product-type",
	} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}
