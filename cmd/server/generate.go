package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"growth-charts/internal/render"
)

var generateCmd = &cobra.Command{
	Use:   "generate <cedula>",
	Short: "Run the chart program once and print the inline frame",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	identifier := ""
	if len(args) > 0 {
		identifier = args[0]
	}

	artifact, err := a.generator.Generate(cmd.Context(), identifier)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Render.ProcessErrorText, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), render.Iframe(artifact.Content, cfg.Render.IframeHeight))
	return nil
}
