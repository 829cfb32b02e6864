package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/warden/pkg/config"
)

func newCheckConfigCommand(env *Env) *Command {
	return &Command{
		Name:        "check-config",
		Description: "Validate the environment and print the effective settings",
		Run: func(args []string) error {
			return runCheckConfig(env)
		},
	}
}

func runCheckConfig(env *Env) error {
	settings, err := config.Load(env.Lookup)
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(env.Out, "configuration has %d problem(s):\n", len(cfgErr.Violations))
			for _, v := range cfgErr.Violations {
				fmt.Fprintf(env.Out, "  - %s\n", v)
			}
		}
		return err
	}

	fmt.Fprintln(env.Out, "configuration OK")
	fmt.Fprintf(env.Out, "  environment:     %s\n", settings.Environment)
	fmt.Fprintf(env.Out, "  listen:          :%d (health :%d)\n", settings.Server.Port, settings.Server.HealthPort)
	fmt.Fprintf(env.Out, "  timezone:        %s\n", settings.Server.Timezone)
	fmt.Fprintf(env.Out, "  allowed origins: %s\n", strings.Join(settings.Server.AllowOrigins, ", "))
	fmt.Fprintf(env.Out, "  request timeout: %s\n", settings.Server.RequestTimeout)
	fmt.Fprintf(env.Out, "  token:           %s, lifetime %s\n", settings.Auth.Algorithm, settings.Auth.Expiration)
	fmt.Fprintf(env.Out, "  log level:       %s\n", settings.Logging.Level)
	if settings.Logging.SinkEnabled {
		fmt.Fprintf(env.Out, "  log sink:        %s\n", settings.Logging.Type)
	}
	if settings.RateLimit.Enabled() {
		fmt.Fprintf(env.Out, "  rate limit:      %d per %s (proxy headers trusted: %t)\n",
			settings.RateLimit.Requests, settings.RateLimit.Window, settings.RateLimit.TrustProxyHeaders)
	}
	fmt.Fprintf(env.Out, "  tracing:         %t\n", settings.Observability.OTelEnabled)
	fmt.Fprintf(env.Out, "  mail:            %t\n", settings.Mail.Enabled())
	return nil
}
