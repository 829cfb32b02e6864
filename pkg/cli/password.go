package cli

import (
	"flag"
	"fmt"

	"github.com/platinummonkey/warden/pkg/config"
	"github.com/platinummonkey/warden/pkg/credentials"
)

func newPasswordCommand(env *Env) *Command {
	return &Command{
		Name:        "password",
		Description: "Generate a random password and its bcrypt hash",
		Run: func(args []string) error {
			return runPassword(env, args)
		},
	}
}

func runPassword(env *Env, args []string) error {
	flags := flag.NewFlagSet("password", flag.ContinueOnError)
	flags.SetOutput(env.Err)
	length := flags.Int("length", 0, "Password length (defaults to GENERATED_PASSWORD_LENGTH)")
	hashOnly := flags.String("hash", "", "Hash this password instead of generating one")

	if err := flags.Parse(args); err != nil {
		return err
	}

	settings, err := config.Load(env.Lookup)
	if err != nil {
		return err
	}

	hasher, err := credentials.NewHasher(settings.Credentials.HashCost)
	if err != nil {
		return err
	}

	password := *hashOnly
	if password == "" {
		n := settings.Credentials.GeneratedPasswordLength
		if *length > 0 {
			n = *length
		}
		password, err = credentials.GeneratePassword(n)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "password: %s\n", password)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "hash:     %s\n", hash)
	return nil
}
