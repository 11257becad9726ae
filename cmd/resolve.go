package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/open"
	"github.com/vidresolve/vidresolve/report"
	"github.com/vidresolve/vidresolve/resolver"
)

var errNothingToOpen = errors.New("no link resolved to a direct url")

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().BoolP("json", "j", false, "Print the response as JSON")
	resolveCmd.Flags().BoolP("bypass", "b", false, "Skip the cache read")
	resolveCmd.Flags().DurationP("timeout", "t", 0, "Per-link timeout, defaults to resolver.per_link_timeout_ms")
	resolveCmd.Flags().BoolP("open", "o", false, "Open the first resolved link")
	resolveCmd.Flags().String("with", "", "Application used by --open, e.g. mpv")
	resolveCmd.Flags().Bool("schema", false, "Print the JSON Schema of the --json output and exit")

	resolveCmd.SetOut(os.Stdout)
}

// resolveCmd resolves embed URLs once without starting the server.
var resolveCmd = &cobra.Command{
	Use:   "resolve [urls...]",
	Short: "Resolve embed URLs into direct media links",
	Example: `  vidresolve resolve https://video.sibnet.ru/shell.php?videoid=4812345
  vidresolve resolve --json https://sendvid.com/abc123 https://vidmoly.to/embed-xyz.html`,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			handleErr(enc.Encode(report.Schema()))
			return
		}

		if len(args) == 0 {
			handleErr(cmd.Help())
			return
		}

		ctx := context.Background()
		e, err := newEngine(ctx)
		handleErr(err)
		defer e.Close()

		resp, err := e.service.Resolve(ctx, resolver.Request{
			URLs:           args,
			PerLinkTimeout: lo.Must(cmd.Flags().GetDuration("timeout")),
			Bypass:         lo.Must(cmd.Flags().GetBool("bypass")),
		})
		handleErr(err)

		handleErr(report.Write(args, resp, report.Options{
			Out:  cmd.OutOrStdout(),
			JSON: lo.Must(cmd.Flags().GetBool("json")),
		}))

		if lo.Must(cmd.Flags().GetBool("open")) {
			first, ok := lo.Find(resp.Results, func(r embed.Result) bool { return r.Success && !r.Proxied })
			if !ok {
				handleErr(errNothingToOpen)
			}
			handleErr(open.Link(first.DirectURL, lo.Must(cmd.Flags().GetString("with"))))
		}
	},
}
