// vaultagent is the client-side decryption bridge.
package main

import "github.com/skygkruger/vaultagent-sub000/internal/cli"

func main() {
	cli.Execute()
}
