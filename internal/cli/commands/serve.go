package commands

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/gorilla/securecookie"
	"github.com/spcai/labcms/internal/ui"
	"github.com/spf13/cobra"
)

// sessionKeyLength is the size of a generated session key.
const sessionKeyLength = 32

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Dev       bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"ui"},
		Short:   "Start the labcms web dashboard",
		Long: `Start a web server providing the content dashboard.

The dashboard provides:
- An overview of content totals and recent publications
- Searchable, editable tables for every content table
- A file browser for the storage bucket
- Public object URLs under /storage/v1/object/public/

Open pages update when another session or the file watcher changes content.`,
		Example: `  # Start on the configured port
  labcms serve

  # Start on a custom port
  labcms serve --port 3000

  # Start without auto-opening browser
  labcms serve --no-browser`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Watch the storage bucket for file changes")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Enable live reload of templates and assets")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// --port and --watch are already merged into the config.
	uiCfg := cc.Cfg.GetUIConfig()

	server := ui.NewServer(ui.Config{
		Platform:        cc.Platform,
		Registry:        cc.Registry,
		Port:            uiCfg.Port,
		Watch:           uiCfg.Watch,
		SessionSecret:   sessionSecret(uiCfg.SessionSecret, cc.Logger),
		ItemsPerPage:    uiCfg.ItemsPerPage,
		ShutdownTimeout: uiCfg.ShutdownTimeout,
		Dev:             opts.Dev,
		Logger:          cc.Logger,
	})

	url := fmt.Sprintf("http://localhost:%d", uiCfg.Port)
	if uiCfg.AutoOpen && !opts.NoBrowser {
		go openBrowser(url)
	}

	cc.Renderer.Success("Serving labcms on " + url)
	cc.Renderer.Muted("Press Ctrl+C to stop")

	return server.Serve(cmd.Context())
}

// sessionSecret returns the configured secret, or a random key that lasts
// until the server stops.
func sessionSecret(configured string, logger *slog.Logger) string {
	if configured != "" {
		return configured
	}
	logger.Warn("ui.session_secret is not set, sessions end when the server stops")
	return string(securecookie.GenerateRandomKey(sessionKeyLength))
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
