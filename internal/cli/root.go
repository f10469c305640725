// Package cli implements the vaultagent command line: the decryption bridge
// between an agent session token and processes that need the plaintext
// secrets.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
	"github.com/skygkruger/vaultagent-sub000/internal/platform"
)

var rootCmd = &cobra.Command{
	Use:   "vaultagent",
	Short: "Fetch and decrypt secrets from a vaultagent server",
	Long: `vaultagent turns an agent session token into usable secrets.

The server stores only ciphertext; decryption happens locally with the
master password, which is read from ` + "VAULTAGENT_PASSWORD" + ` or prompted
on the terminal and is never sent anywhere.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Decrypted secrets must never land in a core file.
		if err := platform.DisableCoreDumps(); err != nil {
			warnf("could not disable core dumps: %v", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "vaultagent server URL")
	rootCmd.PersistentFlags().String("token", "", "agent session token (va_sess_...)")

	viper.SetEnvPrefix("VAULTAGENT")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		errorf("%v", err)
		os.Exit(1)
	}
}

func serverURL() string { return viper.GetString("server") }

// sessionToken resolves the token from a positional argument, falling back
// to --token or VAULTAGENT_TOKEN, and rejects anything that is not shaped
// like a session token before any network call.
func sessionToken(args []string) (string, error) {
	tok := viper.GetString("token")
	if len(args) > 0 {
		tok = args[0]
	}
	if tok == "" {
		return "", fmt.Errorf("no session token: pass it as an argument, via --token, or set VAULTAGENT_TOKEN")
	}
	if !crypto.ValidTokenFormat(tok) {
		return "", fmt.Errorf("malformed session token: expected va_sess_ followed by 46 url-safe characters")
	}
	return tok, nil
}
