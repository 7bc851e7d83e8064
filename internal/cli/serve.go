package cli

import (
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/haydenk/askpdf/server"
)

// serveCmd runs the HTTP server exposing ingest, ask and remove.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		srv := server.New(p)
		color.Cyan("Listening on :%s", cfg.Server.Port)
		return http.ListenAndServe(":"+cfg.Server.Port, srv.Routes())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
