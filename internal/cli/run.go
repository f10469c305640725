package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skygkruger/vaultagent-sub000/internal/bridge"
	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
)

var runCmd = &cobra.Command{
	Use:   "run [token] -- <command> [args...]",
	Short: "Run a command with the session's secrets in its environment",
	Long: `Fetches and decrypts the session's secrets, then executes the given
command with them injected as environment variables. The master password is
stripped from the child environment and the exit code is forwarded:

  vaultagent run va_sess_... -- npm test`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenArgs, argv, err := splitRunArgs(cmd.ArgsLenAtDash(), args)
		if err != nil {
			return err
		}
		tok, err := sessionToken(tokenArgs)
		if err != nil {
			return err
		}
		grant, err := bridge.NewClient(serverURL(), tok).FetchSecrets(cmd.Context())
		if err != nil {
			return err
		}
		password, err := bridge.ReadPassword()
		if err != nil {
			return err
		}

		plains, err := bridge.DecryptAll(grant.Secrets, string(password))
		crypto.Zero(password)
		if err != nil {
			return err
		}

		code, err := bridge.RunCommand(argv, plains)
		bridge.WipeAll(plains)
		if err != nil {
			return err
		}
		os.Exit(code)
		return nil
	},
}

// splitRunArgs separates the optional positional token (before the dash)
// from the command to execute (after it). dash is cobra's ArgsLenAtDash.
func splitRunArgs(dash int, args []string) (tokenArgs, argv []string, err error) {
	if dash < 0 {
		return nil, nil, fmt.Errorf("usage: vaultagent run [token] -- <command> [args...]")
	}
	tokenArgs, argv = args[:dash], args[dash:]
	if len(tokenArgs) > 1 {
		return nil, nil, fmt.Errorf("at most one token argument before --, got %d", len(tokenArgs))
	}
	if len(argv) == 0 {
		return nil, nil, fmt.Errorf("no command given after --")
	}
	return tokenArgs, argv, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
