// tokengen mints HMAC auth tokens for local clients.
//
// Usage:
//
//	go run ./cmd/tokengen -secret <shared secret> -user <userId>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/starfall/server/internal/auth"
)

func main() {
	secret := flag.String("secret", "", "shared HMAC secret (matches auth.secret in server.toml)")
	user := flag.String("user", "", "user id to embed in the token")
	flag.Parse()

	if *secret == "" || *user == "" {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Println(auth.SignToken(*secret, *user))
}
