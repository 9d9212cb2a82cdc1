package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/aloud/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-aloud HTTP API",
	Long: paragraph(fmt.Sprintf("\n%s GET /health, GET /voices, POST /read and POST /stop. "+
		"Only one text is read at a time; a new read stops the previous one.", keyword("Serve"))),
	Example: paragraph("aloud serve\naloud serve --addr 0.0.0.0:8000\nALOUD_CORS_ORIGINS=http://localhost:3000 aloud serve"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := server.LoadConfig()
		if err != nil {
			return fmt.Errorf("error parsing server config: %w", err)
		}
		if cfg.Addr == "" || cmd.Flags().Changed("addr") {
			cfg.Addr = viper.GetString("serve.addr")
		}

		logger := log.Default().WithPrefix("server")
		logger.SetReportTimestamp(true)
		if logger.GetLevel() > log.InfoLevel {
			logger.SetLevel(log.InfoLevel)
		}

		srv := server.New(cfg,
			server.WithEngine(newEngine),
			server.WithFetcher(newFetcher()),
			server.WithLogger(logger),
		)

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", server.DefaultAddr, "address to listen on")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
}
