package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/config"
)

// claimFlags collects repeated -claim key=value flags
type claimFlags map[string]interface{}

func (c claimFlags) String() string {
	pairs := make([]string, 0, len(c))
	for k, v := range c {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(pairs, ",")
}

func (c claimFlags) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("claim must be key=value, got %q", value)
	}
	c[key] = val
	return nil
}

func newTokenCommand(env *Env) *Command {
	return &Command{
		Name:        "token",
		Description: "Issue a signed bearer token with the configured secret",
		Run: func(args []string) error {
			return runToken(env, args)
		},
	}
}

func runToken(env *Env, args []string) error {
	flags := flag.NewFlagSet("token", flag.ContinueOnError)
	flags.SetOutput(env.Err)
	subject := flags.String("sub", "", "Token subject (required)")
	ttl := flags.Duration("ttl", 0, "Token lifetime (defaults to JWT_SECRET_EXPIRATION)")
	claims := claimFlags{}
	flags.Var(claims, "claim", "Extra claim as key=value (repeatable)")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-sub is required")
	}

	settings, err := config.Load(env.Lookup)
	if err != nil {
		return err
	}

	lifetime := settings.Auth.Expiration
	if *ttl > 0 {
		lifetime = *ttl
	}

	tm, err := auth.NewTokenManager(settings.Auth.Secret, lifetime, settings.Auth.Algorithm)
	if err != nil {
		return err
	}

	claims["sub"] = *subject
	token, err := tm.CreateToken(claims)
	if err != nil {
		return err
	}

	fmt.Fprintln(env.Out, token)
	fmt.Fprintf(env.Err, "expires at %s\n", time.Now().Add(lifetime).Format(time.RFC3339))
	return nil
}
