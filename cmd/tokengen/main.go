// Command tokengen mints a service token for an API caller using the same
// GUARDIAN_API_* settings the server validates against.
//
//	GUARDIAN_API_SIGNING_KEY=... go run ./cmd/tokengen -caller accessbot -ttl 720h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "guardian/internal/jwt_token"
	"guardian/internal/platform/config"
)

func main() {
	caller := flag.String("caller", "", "caller identity embedded in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
	if *ttl <= 0 {
		fmt.Fprintln(os.Stderr, "tokengen: -ttl must be positive")
		os.Exit(2)
	}

	svc := jwttoken.NewJWTService(cfg.Server.SigningKey, cfg.Server.TokenIssuer, cfg.Server.TokenAudience)
	token, err := svc.GenerateServiceToken(*caller, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
