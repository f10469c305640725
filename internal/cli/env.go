package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/skygkruger/vaultagent-sub000/internal/bridge"
	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
)

var envCmd = &cobra.Command{
	Use:   "env [token]",
	Short: "Print export statements for the session's secrets",
	Long: `Fetches every secret the session is scoped to, decrypts locally and
prints POSIX export statements on stdout:

  eval "$(vaultagent env va_sess_...)"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := sessionToken(args)
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
		defer crypto.Zero(password)

		plains, err := bridge.DecryptAll(grant.Secrets, string(password))
		if err != nil {
			return err
		}
		defer bridge.WipeAll(plains)

		if err := bridge.ExportScript(os.Stdout, plains); err != nil {
			return err
		}
		infof("%d secrets exported for session %q", len(plains), grant.AgentName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(envCmd)
}
