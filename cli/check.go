package cli

import (
	"github.com/alecthomas/kong"
)

type CheckCmd struct {
	Config string `help:"YAML configuration file to validate." arg:"" optional:""`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	cfg, err := loadConfig(cmd.Config)
	if err != nil {
		printError(ctx.Stderr, err.Error())
		return NewCommandError(1)
	}

	printInfof(ctx.Stdout, "%d aliases, %d rules, %d aggregate specs", len(cfg.Aliases), len(cfg.Rules), len(cfg.Aggregates))
	printInfof(ctx.Stdout, "locale %s, dedup %s over %v", cfg.Locale, cfg.DedupMode, cfg.DedupKey)
	printSuccess(ctx.Stdout, "Configuration is valid")

	return nil
}
