package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/rasterpipe/internal/logging"
	"github.com/kiesman99/rasterpipe/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for tile and region access",
	Long: `Start an HTTP server that exposes the rasters in a directory through a
REST API. Images are opened on first use and keep their tile cache for the
lifetime of the server.

Examples:
  # Serve the current directory on port 8080
  rasterpipe serve

  # Serve a data directory on a custom port
  rasterpipe serve --root /srv/rasters --port 3000

  # Start server with custom bind address
  rasterpipe serve --bind 0.0.0.0 --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	serveCmd.Flags().String("root", ".", "directory holding the served images")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.root", serveCmd.Flags().Lookup("root"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")
	root := viper.GetString("server.root")

	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return fmt.Errorf("root %q is not a directory", root)
	}

	l, err := newLoader()
	if err != nil {
		return err
	}

	catalog := server.NewCatalog(root, l)
	defer catalog.Close()

	addr := fmt.Sprintf("%s:%d", bind, port)

	apiServer := server.NewServer("1.0.0", catalog)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(apiServer, timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintf(cmd.ErrOrStderr(), "\nShutting down server...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logging.Logger().Error("server shutdown failed", "error", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting rasterpipe server on %s serving %s\n", addr, root)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Images: http://%s/api/v1/images\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Tiles: http://%s/api/v1/images/{name}/tiles/{col}/{row}\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Regions: http://%s/api/v1/images/{name}/region?x=&y=&w=&h=\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}
