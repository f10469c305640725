package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skygkruger/vaultagent-sub000/internal/bridge"
)

var statusCmd = &cobra.Command{
	Use:   "status [token]",
	Short: "Describe the session behind the current token",
	Long: `Shows the session's label, expiry and scoped secret names without
fetching or decrypting anything. Works on expired and revoked sessions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := sessionToken(args)
		if err != nil {
			return err
		}
		st, err := bridge.NewClient(serverURL(), tok).FetchStatus(cmd.Context())
		if err != nil {
			return err
		}

		w := os.Stdout
		fmt.Fprintf(w, "%s %s\n", bold("Session:"), st.AgentName)
		fmt.Fprintf(w, "%s %s\n", bold("Status:"), colorStatus(st.Status))
		fmt.Fprintf(w, "%s %s", bold("Expires:"), st.ExpiresAt.Local().Format(time.RFC1123))
		if remaining := time.Until(st.ExpiresAt); remaining > 0 {
			fmt.Fprintf(w, " (%s remaining)", remaining.Round(time.Minute))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", bold("Secrets:"), strings.Join(st.AllowedSecrets, ", "))
		return nil
	},
}

func colorStatus(s string) string {
	switch s {
	case "active":
		return green(strings.ToUpper(s))
	case "expired":
		return yellow(strings.ToUpper(s))
	default:
		return red(strings.ToUpper(s))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
