// Command devtoken mints identity tokens for local development, standing in
// for the external identity provider.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/codebro/backend/internal/auth"
	"github.com/codebro/backend/internal/config"
)

func main() {
	userID := flag.Int64("user", 1, "user id to embed in the token")
	email := flag.String("email", "dev@codebro.local", "email claim")
	roles := flag.String("roles", "", "comma-separated roles, e.g. admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	id := auth.Identity{UserID: *userID, Email: *email}
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			id.Roles = append(id.Roles, r)
		}
	}

	token, err := auth.IssueToken([]byte(cfg.JWTSecret), id, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
