package main

import (
	"github.com/spf13/cobra"

	"growth-charts/internal/config"
)

var (
	flagConfig       string
	flagInterpreter  string
	flagScript       string
	flagWorkDir      string
	flagMode         string
	flagTimeout      string
	flagIframeHeight string
	flagLogLevel     string
	flagLogJSON      bool
)

func addGeneratorFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Path to YAML config file")
	pf.StringVar(&flagInterpreter, "interpreter", "", "Python interpreter path (default: python3/python from PATH)")
	pf.StringVar(&flagScript, "script", "", "Chart program to run")
	pf.StringVar(&flagWorkDir, "work-dir", "", "Working directory of the chart program")
	pf.StringVar(&flagMode, "mode", "", "Artifact hand-off: shared, scoped or stdout")
	pf.StringVar(&flagTimeout, "timeout", "", "Kill the chart program after this long (e.g. 90s, 2m; 0 disables)")
	pf.StringVar(&flagIframeHeight, "iframe-height", "", "Height of the chart frame (e.g. 700px)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	pf.BoolVar(&flagLogJSON, "log-json", false, "Write logs as JSON")
}

// loadConfig reads the config file and environment, then applies any flag
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("interpreter") {
		cfg.Generator.Interpreter = flagInterpreter
	}
	if flags.Changed("script") {
		cfg.Generator.Script = flagScript
	}
	if flags.Changed("work-dir") {
		cfg.Generator.WorkDir = flagWorkDir
	}
	if flags.Changed("mode") {
		cfg.Generator.Mode = flagMode
	}
	if flags.Changed("timeout") {
		d, err := config.ParseDuration(flagTimeout)
		if err != nil {
			return nil, err
		}
		cfg.Generator.Timeout = config.Duration(d)
	}
	if flags.Changed("iframe-height") {
		cfg.Render.IframeHeight = flagIframeHeight
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	if flags.Changed("log-json") {
		cfg.Logging.JSON = flagLogJSON
	}

	if flags.Changed("listen") {
		cfg.Server.Listen = flagListen
	}
	if flags.Changed("page") {
		cfg.Server.Page = flagPage
	}
	if flags.Changed("generate-on-get") {
		cfg.Server.GenerateOnGet = flagGenerateOnGet
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
