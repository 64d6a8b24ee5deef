package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/logview/internal/app"
)

var (
	configPath string

	viewURL   string
	viewPlain bool

	serveFile   string
	serveDir    string
	serveListen string
)

var rootCmd = &cobra.Command{
	Use:   "logview",
	Short: "Live log viewer",
	Long: `logview shows a log served over HTTP and follows new lines as they
are written.

Example:
  logview                              # view the server from the config
  logview --url http://host:8080       # view another server
  logview --plain | less -R            # write lines to stdout
  logview serve --file /var/log/app.log`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runView,
}

var viewCmd = &cobra.Command{
	Use:          "view",
	Short:        "View a log server (default)",
	SilenceUsage: true,
	RunE:         runView,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a log file over HTTP",
	Long: `Watches a log file and serves it on /content, /logs (server-sent
events), /status and /health.

With --dir the newest *.log file in the directory is served, and the server
switches to a newer file if the current one disappears.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config path (default ~/.config/logview/config.toml)")

	for _, cmd := range []*cobra.Command{rootCmd, viewCmd} {
		cmd.Flags().StringVarP(&viewURL, "url", "u", "", "log server URL (overrides server_url)")
		cmd.Flags().BoolVar(&viewPlain, "plain", false, "write lines to stdout instead of the full-screen UI")
	}

	serveCmd.Flags().StringVarP(&serveFile, "file", "f", "", "log file to serve")
	serveCmd.Flags().StringVarP(&serveDir, "dir", "d", "", "serve the newest *.log in this directory")
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (default :8080)")
	serveCmd.MarkFlagsMutuallyExclusive("file", "dir")

	rootCmd.AddCommand(viewCmd, serveCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	return app.RunViewer(cmd.Context(), app.ViewerOptions{
		ConfigPath: configPath,
		ServerURL:  viewURL,
		Plain:      viewPlain,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	return app.RunServer(cmd.Context(), app.ServerOptions{
		ConfigPath: configPath,
		File:       serveFile,
		Dir:        serveDir,
		Listen:     serveListen,
	})
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "logview: %v\n", err)
		return 1
	}
	return 0
}
