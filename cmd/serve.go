package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vidresolve/vidresolve/auth"
	"github.com/vidresolve/vidresolve/config"
	"github.com/vidresolve/vidresolve/icon"
	"github.com/vidresolve/vidresolve/key"
	"github.com/vidresolve/vidresolve/log"
	"github.com/vidresolve/vidresolve/proxy"
	"github.com/vidresolve/vidresolve/rescan"
	"github.com/vidresolve/vidresolve/server"
	"github.com/vidresolve/vidresolve/style"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("host", "H", "", "Interface to listen on")
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on")
	serveCmd.Flags().BoolP("verbose", "V", false, "Mirror logs to stderr")
	lo.Must0(viper.BindPFlag(key.ServerHost, serveCmd.Flags().Lookup("host")))
	lo.Must0(viper.BindPFlag(key.ServerPort, serveCmd.Flags().Lookup("port")))
	lo.Must0(viper.BindPFlag(key.LogsStderr, serveCmd.Flags().Lookup("verbose")))
}

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resolver HTTP API with the streaming proxy",
	Long: `Serve POST /resolve, GET /stream, GET /status and POST /internal/run-resolver.
The rescan endpoint is enabled once a secret is set with "secret set" or rescan.secret.`,
	Example: "  vidresolve serve --port 8787 --verbose",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("verbose")) {
			handleErr(log.Setup())
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := newEngine(ctx)
		handleErr(err)
		defer e.Close()

		secret, err := auth.Secret()
		if err != nil {
			log.Warnf("reading rescan secret: %s", err)
		}

		srv := server.New(
			e.service,
			proxy.New(proxy.Options{
				UserAgent:    config.UserAgent(),
				MaxRedirects: viper.GetInt(key.ProxyMaxRedirects),
				Fingerprint:  viper.GetBool(key.FetchTLSFingerprint),
			}),
			rescan.NewRunner(e.service, rescan.Targets),
			e.fetcher,
			server.Options{
				Host:              viper.GetString(key.ServerHost),
				Port:              viper.GetInt(key.ServerPort),
				Secret:            secret,
				RescanInterval:    config.Minutes(key.RescanIntervalMinutes),
				PageSweepInterval: config.Seconds(key.CacheSweepIntervalSeconds),
			},
		)

		fmt.Printf("%s listening on %s with %s\n",
			style.Fg(style.Green)(icon.Get(icon.Success)),
			style.Bold("http://"+srv.Addr()),
			style.Faint(fmt.Sprintf("%d strategies", len(e.registry.Names()))),
		)
		handleErr(srv.Run(ctx))
	},
}
