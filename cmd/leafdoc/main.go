// leafdoc diagnoses plant leaf diseases from photos.
//
// Usage:
//
//	leafdoc serve [--config leafdoc.yaml]
//	leafdoc diagnose <path|url>... [--json] [--out report.txt]
//	leafdoc labels [--json]
//	leafdoc version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/leafdoc/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "leafdoc",
	Short: "Plant leaf disease diagnosis from photos",
	Long: "leafdoc classifies pepper, potato and tomato leaf photos with an ONNX model\n" +
		"and reports the plant, disease, cause and a confidence score.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $LEAFDOC_CONFIG)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = config.Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
