package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vidresolve/vidresolve/config"
	"github.com/vidresolve/vidresolve/filesystem"
	"github.com/vidresolve/vidresolve/icon"
	"github.com/vidresolve/vidresolve/style"
	"github.com/vidresolve/vidresolve/util"
)

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Without(lo.Keys(config.Default), args...), cobra.ShellCompDirectiveNoFileComp
}

// completeFirstKey completes only the key position of "key value" commands.
func completeFirstKey(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeKeys(cmd, args, toComplete)
}

// valueOf renders the effective value of f, with the duration it stands for when it holds one.
func valueOf(f config.Field) string {
	v := viper.Get(f.Key)

	var rendered string
	switch value := v.(type) {
	case bool:
		rendered = style.Outcome(value)(fmt.Sprint(value))
	case string:
		if value == "" {
			return style.Faint(`""`)
		}
		rendered = style.Fg(style.Yellow)(value)
	default:
		rendered = fmt.Sprint(value)
	}

	if d, ok := f.Duration(); ok && d > 0 {
		rendered += " " + style.Faint("("+d.String()+")")
	}
	return rendered
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// configCmd groups commands reading and changing settings.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change vidresolve settings",
	Long: `Settings come from defaults, then ` + "`vidresolve.toml`" + ` in the config directory, then VIDRESOLVE_* environment variables.
Keys holding milliseconds, seconds or minutes also accept durations such as 4h or 1500ms.`,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configShowCmd.Flags().BoolP("json", "j", false, "Print fields with value, default, type and env as JSON")
	configShowCmd.Flags().BoolP("changed", "c", false, "Only show keys that differ from their default")
	configShowCmd.Flags().BoolP("long", "l", false, "Show descriptions and env names")
	configShowCmd.ValidArgsFunction = completeKeys
	configShowCmd.SetOut(os.Stdout)
}

// configShowCmd prints settings grouped by section.
var configShowCmd = &cobra.Command{
	Use:     "show [keys...]",
	Aliases: []string{"info", "list"},
	Short:   "Show settings grouped by section",
	Example: `  vidresolve config show --changed
  vidresolve config show resolver.concurrency cache.ttl_seconds --long`,
	Run: func(cmd *cobra.Command, args []string) {
		fields, err := config.Fields(args...)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("changed")) {
			fields = lo.Filter(fields, func(f config.Field, _ int) bool { return f.Changed() })
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(fields))
			return
		}

		long := lo.Must(cmd.Flags().GetBool("long"))
		width := util.TerminalWidth(100)
		header := style.New().Bold(true).Foreground(style.HiPurple).Render

		for i, group := range lo.PartitionBy(fields, func(f config.Field) string { return f.Section() }) {
			if i > 0 {
				cmd.Println()
			}
			cmd.Println(header("[" + group[0].Section() + "]"))

			for _, f := range group {
				if long {
					cmd.Println(f.Pretty())
					cmd.Println()
					continue
				}

				marker := " "
				if f.Changed() {
					marker = style.Fg(style.Yellow)("*")
				}
				line := fmt.Sprintf("%s %-32s %s", marker, f.Key, valueOf(f))
				cmd.Println(util.Ellipsis(line, width))
			}
		}
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configGetCmd.ValidArgsFunction = completeFirstKey
}

// configGetCmd prints a raw value, for scripts.
var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the effective value of a key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		field, err := config.Lookup(args[0])
		handleErr(err)
		fmt.Println(viper.Get(field.Key))
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configSetCmd.ValidArgsFunction = completeFirstKey
}

// configSetCmd writes a value to the config file.
var configSetCmd = &cobra.Command{
	Use:   "set [key] [values...]",
	Short: "Set a key and save it to the config file",
	Args:  cobra.MinimumNArgs(2),
	Example: `  vidresolve config set resolver.concurrency 8
  vidresolve config set rescan.interval_minutes 4h
  vidresolve config set proxy.base_url https://resolver.example.com`,
	Run: func(cmd *cobra.Command, args []string) {
		field, err := config.Lookup(args[0])
		handleErr(err)

		v, err := field.Parse(args[1:])
		handleErr(err)

		viper.Set(field.Key, v)
		handleErr(config.Save())

		fmt.Printf("%s %s = %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), style.Fg(style.Purple)(field.Key), valueOf(field))
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")
	configResetCmd.ValidArgsFunction = completeKeys
}

// configResetCmd restores defaults and saves them.
var configResetCmd = &cobra.Command{
	Use:   "reset [keys...]",
	Short: "Restore keys to their defaults",
	Run: func(cmd *cobra.Command, args []string) {
		all := lo.Must(cmd.Flags().GetBool("all"))
		if all == (len(args) > 0) {
			handleErr(fmt.Errorf("name keys to reset or pass --all, not both"))
		}

		fields, err := config.Fields(args...)
		handleErr(err)

		for _, f := range fields {
			viper.Set(f.Key, f.Value)
		}
		handleErr(config.Save())

		names := lo.Map(fields, func(f config.Field, _ int) string { return f.Key })
		if all {
			names = []string{"all keys"}
		}
		fmt.Printf("%s reset %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), style.Fg(style.Purple)(strings.Join(names, ", ")))
	},
}

func init() {
	configCmd.AddCommand(configWriteCmd)
	configWriteCmd.Flags().BoolP("force", "f", false, "Replace an existing config file")
}

// configWriteCmd dumps the effective settings, useful as a starting point for editing.
var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the effective settings to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := config.Path()
		exists := lo.Must(filesystem.API().Exists(path))

		if exists && !lo.Must(cmd.Flags().GetBool("force")) {
			handleErr(fmt.Errorf("%s exists, use --force to replace it", path))
		}
		if exists {
			handleErr(filesystem.API().Remove(path))
		}

		handleErr(viper.SafeWriteConfigAs(path))
		fmt.Printf("%s wrote %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), path)
	},
}

func init() {
	configCmd.AddCommand(configDeleteCmd)
}

// configDeleteCmd removes the config file so only defaults and env apply.
var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove"},
	Short:   "Delete the config file",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(config.Path()))
		fmt.Printf("%s deleted %s\n", style.Fg(style.Green)(icon.Get(icon.Success)), config.Path())
	},
}
