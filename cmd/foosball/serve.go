package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acksell/foosball/api"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				c.cfg.HTTP.Port = port
			}
			loc, err := time.LoadLocation(c.cfg.HTTP.Timezone)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.withApp(cmd, func(a *app) error {
				router := api.NewRouter(api.RouterConfig{
					Models:         a.models(),
					Auth:           a.auth(),
					Logger:         a.log.With().Str("component", "http").Logger(),
					Clock:          clockwork.NewRealClock(),
					Location:       loc,
					AllowedOrigins: c.cfg.HTTP.AllowedOrigins,
				})
				srvCfg := api.DefaultServerConfig()
				srvCfg.Host = c.cfg.HTTP.Host
				srvCfg.Port = c.cfg.HTTP.Port
				return api.NewServer(router, srvCfg, a.log).Run(ctx)
			})
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides http.port)")
	return cmd
}
