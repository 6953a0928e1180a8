package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/tabloom/internal/aggregate"
	"github.com/KaramelBytes/tabloom/internal/export"
	"github.com/KaramelBytes/tabloom/internal/logging"
	"github.com/KaramelBytes/tabloom/internal/web"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser dashboard",
	Long: `Serve starts the single-user dashboard: upload a CSV or XLSX file, choose
a grouping, aggregations and a chart, then download the summary spreadsheet
and the chart.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newDashboard()
		if err != nil {
			return err
		}
		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		if addr == "" {
			addr = "127.0.0.1:8501"
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(addr) }()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dashboard listening on http://%s\n", addr)

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		logging.FromContext(ctx).Info("shutting down dashboard")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func newDashboard() (*web.Server, error) {
	wc := web.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxRows:        cfg.MaxRows,
		AssetsHost:     cfg.AssetsHost,
	}
	if cfg.DefaultChart != "" {
		k, err := export.ParseChartKind(cfg.DefaultChart)
		if err != nil {
			return nil, fmt.Errorf("config default_chart: %w", err)
		}
		wc.DefaultChart = k
	}
	order, err := aggregate.ParseOrder(cfg.GroupOrder)
	if err != nil {
		return nil, fmt.Errorf("config group_order: %w", err)
	}
	wc.GroupOrder = order
	return web.NewServer(wc), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config listen_addr)")
}
