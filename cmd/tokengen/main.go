// Command tokengen mints a token accepted by the server, for local testing.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/npezzotti/taskpulse/internal/auth"
	"github.com/npezzotti/taskpulse/internal/config"
	"github.com/npezzotti/taskpulse/internal/types"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml, toml or json config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded into the environment if present")
	id := flag.String("id", "", "user id (sub claim)")
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "email address")
	ttl := flag.Duration("ttl", auth.DefaultTokenExpiration, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "load env file:", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	token, err := auth.NewVerifier(cfg.SigningKey).Issue(types.Identity{
		Id:    *id,
		Name:  *name,
		Email: *email,
	}, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
