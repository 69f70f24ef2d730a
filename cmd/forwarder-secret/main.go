// Command forwarder-secret prints the argon2id hash to put in
// BUNDLEHUB_SMS_FORWARDER_SECRET_HASH for a secret read from stdin.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/angelmondragon/bundlehub-backend/pkg/security"
)

func main() {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(os.Stderr, "usage: echo -n <secret> | forwarder-secret")
		os.Exit(2)
	}
	hash, err := security.HashSecret(strings.TrimSpace(line), security.DefaultParams)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash secret: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
