// Package cli provides the warden command-line interface.
//
// # Commands
//
// serve: Run the API server and the health/metrics server (default)
//
//	warden serve
//
// token: Issue a bearer token signed with JWT_SECRET
//
//	warden token -sub user-42 -ttl 2h -claim role=admin
//
// password: Generate a password and its bcrypt hash at cost HASH
//
//	warden password -length 16
//	warden password -hash 'existing secret'
//
// check-config: Validate the environment without starting anything
//
//	warden check-config
//
// version: Print the build version
//
// Every command reads its settings from the process environment through
// config.Load, so a command fails with a *config.ConfigurationError before
// doing any work when the environment is invalid.
package cli
