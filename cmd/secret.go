package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/vidresolve/vidresolve/auth"
	"github.com/vidresolve/vidresolve/icon"
	"github.com/vidresolve/vidresolve/style"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(secretCmd)
}

// secretCmd manages the shared secret checked by POST /internal/run-resolver.
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the rescan trigger secret stored in the system keyring",
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	secretSetCmd.Flags().BoolP("generate", "g", false, "Generate a random secret and print it")
}

var secretSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the rescan secret",
	Run: func(cmd *cobra.Command, args []string) {
		var secret string

		switch {
		case lo.Must(cmd.Flags().GetBool("generate")):
			secret = uuid.NewString()
			fmt.Println(secret)
		case !term.IsTerminal(int(os.Stdin.Fd())):
			handleErr(errors.New("stdin is not a terminal, use --generate"))
		default:
			handleErr(survey.AskOne(&survey.Password{
				Message: "Rescan secret:",
				Help:    "Cron jobs send it in the x-cron-secret header",
			}, &secret, survey.WithValidator(survey.Required)))
		}

		handleErr(auth.SetSecret(secret))
		fmt.Printf("%s secret stored\n", style.Fg(style.Green)(icon.Get(icon.Success)))
	},
}

func init() {
	secretCmd.AddCommand(secretShowCmd)
}

var secretShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active rescan secret",
	Run: func(cmd *cobra.Command, args []string) {
		secret, err := auth.Secret()
		handleErr(err)

		if secret == "" {
			fmt.Println(style.Faint("no secret set, rescans are disabled"))
			return
		}
		fmt.Println(secret)
	},
}

func init() {
	secretCmd.AddCommand(secretDeleteCmd)
}

var secretDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove"},
	Short:   "Remove the rescan secret from the keyring",
	Run: func(cmd *cobra.Command, args []string) {
		confirm := false
		handleErr(survey.AskOne(&survey.Confirm{
			Message: "Delete the rescan secret? Scheduled rescans will be refused.",
			Default: false,
		}, &confirm))
		if !confirm {
			return
		}

		err := auth.DeleteSecret()
		if errors.Is(err, auth.ErrNotFound) {
			err = nil
		}
		handleErr(err)
		fmt.Printf("%s secret deleted\n", style.Fg(style.Green)(icon.Get(icon.Success)))
	},
}
