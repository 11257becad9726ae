package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidresolve/vidresolve/constant"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/filesystem"
	"github.com/vidresolve/vidresolve/icon"
	"github.com/vidresolve/vidresolve/internal/scraper"
	"github.com/vidresolve/vidresolve/rank"
	"github.com/vidresolve/vidresolve/strategy"
	"github.com/vidresolve/vidresolve/strategy/script"
	"github.com/vidresolve/vidresolve/style"
	"github.com/vidresolve/vidresolve/util"
	"github.com/vidresolve/vidresolve/where"
)

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

// strategiesCmd groups commands for built-in and scripted host strategies.
var strategiesCmd = &cobra.Command{
	Use:     "strategies",
	Aliases: []string{"strategy"},
	Short:   "Manage built-in and Lua host strategies",
}

func completionScripts(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	files, err := filesystem.API().ReadDir(where.Strategies())
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	return lo.FilterMap(files, func(f os.FileInfo, _ int) (string, bool) {
		if filepath.Ext(f.Name()) != constant.StrategyExtension {
			return "", false
		}
		return util.FileStem(f.Name()), true
	}), cobra.ShellCompDirectiveNoFileComp
}

func describe(s strategy.HostStrategy) string {
	domains := strings.Join(strategy.DomainsOf(s), ", ")
	if domains == "" {
		domains = "any host"
	}

	kind := string(s.Kind())
	if s.Kind() == strategy.KindScripted {
		kind = icon.Get(icon.Script) + " " + kind
	}
	return fmt.Sprintf("%s %s %s", style.Bold(s.Name()), style.Faint(kind), style.Fg(style.Cyan)(domains))
}

func init() {
	strategiesCmd.AddCommand(strategiesListCmd)

	strategiesListCmd.Flags().BoolP("raw", "r", false, "Print names only")
	strategiesListCmd.Flags().BoolP("scripts", "s", false, "Only list Lua strategies")
	strategiesListCmd.Flags().BoolP("builtin", "b", false, "Only list built-in strategies")
	strategiesListCmd.MarkFlagsMutuallyExclusive("scripts", "builtin")

	strategiesListCmd.SetOut(os.Stdout)
}

// strategiesListCmd lists registered strategies in precedence order.
var strategiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered strategies in precedence order",
	Run: func(cmd *cobra.Command, args []string) {
		raw := lo.Must(cmd.Flags().GetBool("raw"))

		all := strategy.Default(loadScripts()...).All()
		switch {
		case lo.Must(cmd.Flags().GetBool("scripts")):
			all = lo.Filter(all, func(s strategy.HostStrategy, _ int) bool { return s.Kind() == strategy.KindScripted })
		case lo.Must(cmd.Flags().GetBool("builtin")):
			all = lo.Reject(all, func(s strategy.HostStrategy, _ int) bool { return s.Kind() == strategy.KindScripted })
		}

		for _, s := range all {
			if raw {
				cmd.Println(s.Name())
				continue
			}
			cmd.Println(describe(s))
		}
	},
}

func init() {
	strategiesCmd.AddCommand(strategiesFindCmd)
	strategiesFindCmd.SetOut(os.Stdout)
}

// strategiesFindCmd looks up strategies by fuzzy name or domain, or by embed URL.
var strategiesFindCmd = &cobra.Command{
	Use:   "find [query|url]",
	Short: "Find the strategy for an embed URL, or strategies fuzzily matching a name",
	Args:  cobra.ExactArgs(1),
	Example: `  vidresolve strategies find https://video.sibnet.ru/shell.php?videoid=1
  vidresolve strategies find sndvd`,
	Run: func(cmd *cobra.Command, args []string) {
		registry := strategy.Default(loadScripts()...)

		if embed.IsAbsoluteHTTP(args[0]) {
			s := registry.StrategyFor(embed.HostOf(args[0]))
			cmd.Println(describe(s))
			for i, r := range s.Rules() {
				cmd.Printf("  %d. %s %s\n", i+1, style.Faint(string(r.Kind)), r.Pattern)
			}
			return
		}

		found := registry.Find(args[0])
		if len(found) == 0 {
			handleErr(fmt.Errorf("no strategy matches %q", args[0]))
		}
		for _, s := range found {
			cmd.Println(describe(s))
		}
	},
}

func init() {
	strategiesCmd.AddCommand(strategiesGenCmd)

	strategiesGenCmd.Flags().StringP("name", "n", "", "Name of the new strategy")
	strategiesGenCmd.Flags().StringP("host", "u", "", "Host served by the strategy, e.g. filemoon.sx")

	lo.Must0(strategiesGenCmd.MarkFlagRequired("name"))
	lo.Must0(strategiesGenCmd.MarkFlagRequired("host"))
}

// strategiesGenCmd scaffolds a Lua strategy.
var strategiesGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Scaffold a Lua strategy in the strategies directory",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SetOut(os.Stdout)

		author := "Anonymous"
		if usr, err := user.Current(); err == nil {
			author = usr.Username
		}

		host := lo.Must(cmd.Flags().GetString("host"))
		if embed.IsAbsoluteHTTP(host) {
			host = embed.HostOf(host)
		}

		s := struct {
			Name          string
			Host          string
			Author        string
			HostsFn       string
			ExtractFn     string
			MinVersionVar string
			Version       string
		}{
			Name:          lo.Must(cmd.Flags().GetString("name")),
			Host:          host,
			Author:        author,
			HostsFn:       constant.StrategyHostsFn,
			ExtractFn:     constant.StrategyExtractFn,
			MinVersionVar: constant.StrategyMinVersionVar,
			Version:       constant.Version,
		}

		tmpl, err := template.New("strategy").Funcs(template.FuncMap{
			"repeat": strings.Repeat,
			"plus":   func(a, b int) int { return a + b },
			"max":    util.Max[int],
		}).Parse(constant.StrategyTemplate)
		handleErr(err)

		target := filepath.Join(where.Strategies(), util.SanitizeFilename(s.Name)+constant.StrategyExtension)
		f, err := filesystem.API().Create(target)
		handleErr(err)
		defer util.Ignore(f.Close)

		handleErr(tmpl.Execute(f, s))
		cmd.Println(target)
	},
}

func init() {
	strategiesCmd.AddCommand(strategiesInstallCmd)
	strategiesInstallCmd.Flags().StringP("name", "n", "", "File name to install as, defaults to the remote file name")
}

// strategiesInstallCmd downloads a Lua strategy.
var strategiesInstallCmd = &cobra.Command{
	Use:     "install [url]",
	Short:   "Download a Lua strategy into the strategies directory",
	Args:    cobra.ExactArgs(1),
	Example: "  vidresolve strategies install https://raw.githubusercontent.com/someone/strategies/main/filemoon.lua",
	Run: func(cmd *cobra.Command, args []string) {
		remote, err := url.Parse(args[0])
		handleErr(err)

		name := lo.Must(cmd.Flags().GetString("name"))
		if name == "" {
			name = util.FileStem(path.Base(remote.Path))
		}
		if name == "" || name == "." || name == "/" {
			handleErr(errors.New("cannot infer a name, use --name"))
		}

		local := filepath.Join(where.Strategies(), util.SanitizeFilename(name)+constant.StrategyExtension)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		changed, err := scraper.Install(ctx, remote.String(), local)
		handleErr(err)

		// reject scripts that do not load and leave nothing behind
		s, err := script.Load(local)
		if err != nil {
			_ = filesystem.API().Remove(local)
			handleErr(err)
		}
		defer s.Close()

		if !changed {
			fmt.Printf("%s %s is up to date\n", icon.Get(icon.Success), style.Fg(style.Yellow)(name))
			return
		}
		fmt.Printf("%s installed %s for %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), style.Fg(style.Yellow)(name), strings.Join(s.Domains(), ", "))
	},
}

func init() {
	strategiesCmd.AddCommand(strategiesRemoveCmd)
	strategiesRemoveCmd.ValidArgsFunction = completionScripts
}

// strategiesRemoveCmd deletes Lua strategies.
var strategiesRemoveCmd = &cobra.Command{
	Use:   "remove [names...]",
	Short: "Delete Lua strategies from the strategies directory",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range args {
			target := filepath.Join(where.Strategies(), name+constant.StrategyExtension)
			handleErr(filesystem.API().Remove(target))
			scraper.Forget(target)
			fmt.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(style.Yellow)(name))
		}
	},
}

func init() {
	strategiesCmd.AddCommand(strategiesRunCmd)
	strategiesRunCmd.SetOut(os.Stdout)
}

// strategiesRunCmd runs one Lua strategy against an embed URL, for script development.
var strategiesRunCmd = &cobra.Command{
	Use:     "run [file] [url]",
	Short:   "Run a Lua strategy against an embed URL and print the ranked candidates",
	Args:    cobra.ExactArgs(2),
	Example: "  vidresolve strategies run ./filemoon.lua https://filemoon.sx/e/abc",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := script.Load(args[0])
		handleErr(err)
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		candidates, err := s.Extract(ctx, args[1], newFetcher())
		handleErr(err)

		ranked, err := rank.FilterAndRank(args[1], candidates, time.Now())
		handleErr(err)

		for i, c := range ranked {
			cmd.Printf("%d. %s %s\n", i+1, style.Faint(string(c.Format)), c.URL)
		}
	},
}
