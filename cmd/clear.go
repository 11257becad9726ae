package cmd

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/vidresolve/vidresolve/icon"
	"github.com/vidresolve/vidresolve/internal/cache"
	"github.com/vidresolve/vidresolve/style"
	"github.com/vidresolve/vidresolve/targets"
	"github.com/vidresolve/vidresolve/util"
	"github.com/vidresolve/vidresolve/where"
)

type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	clear    func() error
}

var clearTargets = []clearTarget{
	{"cached results", "cache", mo.Some("c"), clearResults},
	{"stored targets", "targets", mo.Some("t"), targets.Clear},
	{"logs", "logs", mo.Some("l"), func() error { return util.Delete(where.Logs()) }},
}

// clearResults empties the durable result tier.
func clearResults() error {
	ctx := context.Background()
	c := cache.New(cache.Options{DSN: where.Database()})
	if err := c.Open(ctx); err != nil {
		return err
	}
	defer util.Ignore(c.Close)
	return c.Clear(ctx)
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if short, ok := target.argShort.Get(); ok {
			clearCmd.Flags().BoolP(target.argLong, short, false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

// clearCmd removes stored state.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached results, stored targets or logs",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}
			anyCleared = true

			handleErr(target.clear())
			fmt.Printf("%s %s cleared\n", style.Fg(style.Green)(icon.Get(icon.Success)), util.Capitalize(target.name))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
