package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spcai/labcms/internal/cli/config"
	"github.com/spcai/labcms/internal/cli/output"
	"github.com/spcai/labcms/internal/entity"
	"github.com/spcai/labcms/internal/platform"
	"github.com/spf13/cobra"
)

var errNoConfig = errors.New("configuration not loaded")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Platform *platform.Platform
	Registry *entity.Registry
	Renderer *output.Renderer
}

// NewCommandContext opens the configured stores and builds the entity
// controllers over them. Returns the context and a cleanup function that
// must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutPlatform(cmd)
	if err != nil {
		return nil, nil, err
	}

	p, err := platform.Open(cmd.Context(), cc.Cfg.Platform(), cc.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	cc.Platform = p
	cc.Registry = entity.NewRegistry(p.Platform, cc.Logger)

	cleanup := func() {
		if err := p.Close(); err != nil {
			cc.Logger.Warn("failed to close storage", "error", err)
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutPlatform creates a CommandContext without opening
// the stores.
func NewCommandContextWithoutPlatform(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetConfig(cmd.Context())
	if cfg == nil {
		return nil, errNoConfig
	}
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// lookupService resolves a table argument to its controller.
func lookupService(registry *entity.Registry, table string) (entity.Service, error) {
	svc, ok := registry.Lookup(table)
	if !ok {
		return nil, fmt.Errorf("unknown table %q (available: %v)", table, registry.Tables())
	}
	return svc, nil
}

// completeTables completes table name arguments.
func completeTables(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return entity.TableNames(), cobra.ShellCompDirectiveNoFileComp
}
