package bridge

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// PasswordEnvVar supplies the master password to the CLI. It is stripped
// from any child process this package spawns.
const PasswordEnvVar = "VAULTAGENT_PASSWORD"

// Stored names are normalized upstream but can still start with a digit or
// carry punctuation ("2FA_KEY", "API.KEY"), which no POSIX shell accepts as
// a variable name. Delivery refuses them instead of emitting a broken
// script or a dubious child env.
var envNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkEnvName(name string) error {
	if !envNameRe.MatchString(name) {
		return fmt.Errorf("secret %s is not a valid environment variable name", name)
	}
	return nil
}

// ExportScript renders `export NAME='value'` lines for eval in a POSIX
// shell. Values are single-quoted with embedded quotes escaped, so shell
// metacharacters in secret values stay inert. Names are validated up front
// so a bad one never yields partial output.
func ExportScript(w io.Writer, plains []Plain) error {
	for _, p := range plains {
		if err := checkEnvName(p.Name); err != nil {
			return err
		}
	}
	for _, p := range plains {
		if _, err := fmt.Fprintf(w, "export %s=%s\n", p.Name, shellQuote(string(p.Value))); err != nil {
			return err
		}
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// RunCommand executes argv with the decrypted secrets injected into its
// environment and the master password removed from it. Returns the child's
// exit code.
func RunCommand(argv []string, plains []Plain) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("no command given")
	}
	for _, p := range plains {
		if err := checkEnvName(p.Name); err != nil {
			return 0, err
		}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = childEnv(os.Environ(), plains)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("running %s: %w", argv[0], err)
}

// childEnv merges secrets over the parent environment, dropping the
// password variable so children can never read it.
func childEnv(parent []string, plains []Plain) []string {
	env := make([]string, 0, len(parent)+len(plains))
	shadowed := make(map[string]struct{}, len(plains)+1)
	shadowed[PasswordEnvVar] = struct{}{}
	for _, p := range plains {
		shadowed[p.Name] = struct{}{}
	}
	for _, kv := range parent {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, drop := shadowed[name]; drop {
			continue
		}
		env = append(env, kv)
	}
	for _, p := range plains {
		env = append(env, p.Name+"="+string(p.Value))
	}
	return env
}
