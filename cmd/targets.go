package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/icon"
	"github.com/vidresolve/vidresolve/style"
	"github.com/vidresolve/vidresolve/targets"
	"github.com/vidresolve/vidresolve/util"
)

func init() {
	rootCmd.AddCommand(targetsCmd)
}

// targetsCmd manages the embed URLs re-resolved by scheduled rescans.
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Manage the embed URLs kept warm by rescans",
}

func init() {
	targetsCmd.AddCommand(targetsAddCmd)
}

var targetsAddCmd = &cobra.Command{
	Use:   "add [urls...]",
	Short: "Store embed URLs for rescans",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, u := range args {
			if !embed.IsAbsoluteHTTP(u) {
				handleErr(fmt.Errorf("not an absolute http(s) url: %s", u))
			}
		}

		added, err := targets.Add(args...)
		handleErr(err)
		fmt.Printf("%s added %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), util.Quantify(added, "target", "targets"))
	},
}

func init() {
	targetsCmd.AddCommand(targetsListCmd)
	targetsListCmd.Flags().BoolP("json", "j", false, "Print targets as JSON")
	targetsListCmd.Flags().BoolP("failing", "f", false, "Only list targets whose last rescan failed")
	targetsListCmd.SetOut(os.Stdout)
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored targets with their last rescan outcome",
	Run: func(cmd *cobra.Command, args []string) {
		list, err := targets.List()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("failing")) {
			list = lo.Filter(list, func(t *targets.Target, _ int) bool {
				return !t.LastRunAt.IsZero() && !t.LastOK
			})
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			handleErr(enc.Encode(list))
			return
		}

		width := util.TerminalWidth(80)
		for _, t := range list {
			var status string
			switch {
			case t.LastRunAt.IsZero():
				status = style.Faint(icon.Get(icon.Progress))
			case t.LastOK:
				status = style.Fg(style.Green)(icon.Get(icon.Success))
			default:
				status = style.Fg(style.Red)(icon.Get(icon.Fail))
			}
			cmd.Printf("%s %s\n", status, util.Ellipsis(t.String(), width-4))
		}
	},
}

func init() {
	targetsCmd.AddCommand(targetsRemoveCmd)
	targetsRemoveCmd.Flags().BoolP("all", "a", false, "Remove every target")
	targetsRemoveCmd.ValidArgsFunction = func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		urls, err := targets.URLs()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return urls, cobra.ShellCompDirectiveNoFileComp
	}
}

var targetsRemoveCmd = &cobra.Command{
	Use:     "remove [urls...]",
	Aliases: []string{"rm"},
	Short:   "Forget stored targets",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("all")) {
			handleErr(targets.Clear())
			fmt.Printf("%s removed all targets\n", style.Fg(style.Green)(icon.Get(icon.Success)))
			return
		}
		if len(args) == 0 {
			handleErr(cmd.Help())
			return
		}

		removed, err := targets.Remove(args...)
		handleErr(err)
		fmt.Printf("%s removed %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), util.Quantify(removed, "target", "targets"))
	},
}
