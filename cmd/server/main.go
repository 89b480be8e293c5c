// server serves growth charts rendered by an external Python program.
//
// Usage:
//
//	server serve    [--config=<file>] [--listen=:8080] [--interpreter=<path>] [--mode=scoped]
//	server generate <cedula> [--config=<file>]
//	server version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Embed generated growth charts in an HTML page",
	Long: "server accepts a cédula, runs curvas_de_crecimiento.py for it and returns\n" +
		"the generated Plotly document embedded in an inline frame.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	addGeneratorFlags(rootCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
