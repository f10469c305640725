package cli

import (
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/skygkruger/vaultagent-sub000/internal/crypto"
)

func TestSessionTokenValidation(t *testing.T) {
	defer viper.Set("token", "")

	viper.Set("token", "")
	if _, err := sessionToken(nil); err == nil || !strings.Contains(err.Error(), "no session token") {
		t.Fatalf("empty token: err = %v", err)
	}

	viper.Set("token", "va_sess_tooshort")
	if _, err := sessionToken(nil); err == nil || !strings.Contains(err.Error(), "malformed") {
		t.Fatalf("short token: err = %v", err)
	}

	viper.Set("token", "definitely-not-a-token")
	if _, err := sessionToken(nil); err == nil {
		t.Fatal("unprefixed token accepted")
	}

	tok, err := crypto.GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	viper.Set("token", string(tok))
	got, err := sessionToken(nil)
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if got != string(tok) {
		t.Fatalf("token mangled: %q", got)
	}
}

func TestSessionTokenPositional(t *testing.T) {
	defer viper.Set("token", "")

	posTok, err := crypto.GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	flagTok, err := crypto.GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	viper.Set("token", "")
	got, err := sessionToken([]string{string(posTok)})
	if err != nil {
		t.Fatalf("positional token rejected: %v", err)
	}
	if got != string(posTok) {
		t.Fatalf("token mangled: %q", got)
	}

	// A positional argument beats the flag/env value.
	viper.Set("token", string(flagTok))
	got, err = sessionToken([]string{string(posTok)})
	if err != nil {
		t.Fatalf("positional token rejected: %v", err)
	}
	if got != string(posTok) {
		t.Fatalf("got %q, want the positional token", got)
	}

	if _, err := sessionToken([]string{"garbage"}); err == nil {
		t.Fatal("malformed positional token accepted")
	}
}

// The documented invocations pass the token as a positional argument;
// cobra must route them to the subcommand instead of treating the token as
// an unknown command.
func TestSubcommandsAcceptPositionalToken(t *testing.T) {
	tok, err := crypto.GenerateToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	for _, name := range []string{"env", "status"} {
		cmd, args, err := rootCmd.Find([]string{name, string(tok)})
		if err != nil {
			t.Fatalf("%s: Find: %v", name, err)
		}
		if cmd.Name() != name {
			t.Fatalf("routed to %q, want %q", cmd.Name(), name)
		}
		if len(args) != 1 || args[0] != string(tok) {
			t.Fatalf("%s: positional args = %v", name, args)
		}
		if err := cmd.Args(cmd, args); err != nil {
			t.Fatalf("%s rejects its token argument: %v", name, err)
		}
	}
}

func TestSplitRunArgs(t *testing.T) {
	tok := "va_sess_whatever"

	tokenArgs, argv, err := splitRunArgs(1, []string{tok, "npm", "test"})
	if err != nil {
		t.Fatalf("token form: %v", err)
	}
	if len(tokenArgs) != 1 || tokenArgs[0] != tok {
		t.Fatalf("tokenArgs = %v", tokenArgs)
	}
	if len(argv) != 2 || argv[0] != "npm" {
		t.Fatalf("argv = %v", argv)
	}

	tokenArgs, argv, err = splitRunArgs(0, []string{"npm", "test"})
	if err != nil {
		t.Fatalf("tokenless form: %v", err)
	}
	if len(tokenArgs) != 0 || len(argv) != 2 {
		t.Fatalf("tokenArgs = %v, argv = %v", tokenArgs, argv)
	}

	if _, _, err := splitRunArgs(-1, []string{"npm", "test"}); err == nil {
		t.Fatal("missing dash accepted")
	}
	if _, _, err := splitRunArgs(2, []string{tok, "extra", "npm"}); err == nil {
		t.Fatal("two pre-dash arguments accepted")
	}
	if _, _, err := splitRunArgs(1, []string{tok}); err == nil {
		t.Fatal("empty command accepted")
	}
}
