package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/config"
	"github.com/platinummonkey/warden/pkg/storage"
)

func testEnvironment(overrides map[string]string) map[string]string {
	env := map[string]string{
		"BASE_URL":                      "http://localhost:8080",
		"PORT":                          "8080",
		"ALLOW_ORIGIN":                  "http://localhost:3000",
		"APP_URL":                       "http://localhost:3000",
		"LOGS_DIRECTORY":                "/tmp/warden-logs",
		"JWT_SECRET":                    "cli-test-secret",
		"HASH":                          "4",
		"REDIS_URL":                     "redis://localhost:6379/0",
		"MONGODB_URI":                   "mongodb://127.0.0.1:1/warden",
		"MONGODB_ERROR_COLLECTION_NAME": "errors",
	}
	for k, v := range overrides {
		env[k] = v
	}
	return env
}

func newTestEnv(vars map[string]string) (*Env, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &Env{
		Out: out,
		Err: errOut,
		Lookup: func(key string) (string, bool) {
			v, ok := vars[key]
			return v, ok
		},
	}, out, errOut
}

func TestNewRootCommand(t *testing.T) {
	env, _, _ := newTestEnv(nil)
	root := NewRootCommand(env)

	assert.Equal(t, "warden", root.Name)
	for _, name := range []string{"serve", "token", "password", "check-config", "version"} {
		assert.Contains(t, root.Subcommands, name)
	}
	assert.Len(t, root.Subcommands, 5)
}

func TestCommand_Usage(t *testing.T) {
	env, out, _ := newTestEnv(nil)
	root := NewRootCommand(env)

	require.NoError(t, root.Execute([]string{"--help"}))

	output := out.String()
	assert.Contains(t, output, "Usage: warden <command> [args]")
	assert.Contains(t, output, "check-config")
	assert.Less(t, strings.Index(output, "check-config"), strings.Index(output, "token"), "commands are listed alphabetically")
}

func TestCommand_UnknownCommand(t *testing.T) {
	env, _, _ := newTestEnv(nil)
	err := NewRootCommand(env).Execute([]string{"frobnicate"})
	assert.EqualError(t, err, "unknown command: frobnicate")
}

func TestCommand_Version(t *testing.T) {
	env, out, _ := newTestEnv(nil)
	require.NoError(t, NewRootCommand(env).Execute([]string{"version"}))
	assert.Equal(t, Version+"\n", out.String())
}

func TestTokenCommand(t *testing.T) {
	env, out, errOut := newTestEnv(testEnvironment(nil))

	err := NewRootCommand(env).Execute([]string{"token", "-sub", "u1", "-claim", "role=admin", "-ttl", "2h"})
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "expires at")

	tm, err := auth.NewTokenManager("cli-test-secret", time.Hour, "HS256")
	require.NoError(t, err)

	identity, err := tm.ValidateToken(context.Background(), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.Subject())
	assert.Equal(t, "admin", identity.Claims["role"])

	exp, err := identity.Claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), exp.Time, time.Minute)
}

func TestTokenCommand_Errors(t *testing.T) {
	t.Run("missing subject", func(t *testing.T) {
		env, _, _ := newTestEnv(testEnvironment(nil))
		err := NewRootCommand(env).Execute([]string{"token"})
		assert.EqualError(t, err, "-sub is required")
	})

	t.Run("malformed claim", func(t *testing.T) {
		env, _, _ := newTestEnv(testEnvironment(nil))
		err := NewRootCommand(env).Execute([]string{"token", "-sub", "u1", "-claim", "novalue"})
		assert.Error(t, err)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		env, _, _ := newTestEnv(map[string]string{})
		err := NewRootCommand(env).Execute([]string{"token", "-sub", "u1"})

		var cfgErr *config.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
	})
}

func TestPasswordCommand(t *testing.T) {
	t.Run("generate", func(t *testing.T) {
		env, out, _ := newTestEnv(testEnvironment(map[string]string{"GENERATED_PASSWORD_LENGTH": "14"}))
		require.NoError(t, NewRootCommand(env).Execute([]string{"password"}))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)

		password := strings.TrimSpace(strings.TrimPrefix(lines[0], "password:"))
		hash := strings.TrimSpace(strings.TrimPrefix(lines[1], "hash:"))
		assert.Len(t, password, 14)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)))

		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, 4, cost)
	})

	t.Run("length flag", func(t *testing.T) {
		env, out, _ := newTestEnv(testEnvironment(nil))
		require.NoError(t, NewRootCommand(env).Execute([]string{"password", "-length", "32"}))

		first := strings.Split(out.String(), "\n")[0]
		assert.Len(t, strings.TrimSpace(strings.TrimPrefix(first, "password:")), 32)
	})

	t.Run("hash given password", func(t *testing.T) {
		env, out, _ := newTestEnv(testEnvironment(nil))
		require.NoError(t, NewRootCommand(env).Execute([]string{"password", "-hash", "hunter2"}))

		assert.NotContains(t, out.String(), "password:")
		hash := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out.String()), "hash:"))
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
	})
}

func TestCheckConfigCommand(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env, out, _ := newTestEnv(testEnvironment(map[string]string{"RATE_LIMIT_REQUESTS": "100"}))
		require.NoError(t, NewRootCommand(env).Execute([]string{"check-config"}))

		assert.Contains(t, out.String(), "configuration OK")
		assert.Contains(t, out.String(), "100 per 1m0s")
		assert.NotContains(t, out.String(), "cli-test-secret", "secrets must not be printed")
	})

	t.Run("invalid", func(t *testing.T) {
		env, out, _ := newTestEnv(testEnvironment(map[string]string{"PORT": "http"}))
		err := NewRootCommand(env).Execute([]string{"check-config"})

		require.Error(t, err)
		assert.Contains(t, out.String(), "configuration has 1 problem(s)")
		assert.Contains(t, out.String(), "PORT must be a non-negative integer")
	})
}

func TestServeCommand_InvalidConfiguration(t *testing.T) {
	env, _, errOut := newTestEnv(map[string]string{"PORT": "8080"})

	err := NewRootCommand(env).Execute([]string{"serve"})

	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, errOut.String(), "Invalid configuration")
	assert.Contains(t, errOut.String(), "JWT_SECRET")
}

func newTestApp(t *testing.T, overrides map[string]string) *app {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	vars := testEnvironment(map[string]string{"REDIS_URL": "redis://" + mr.Addr() + "/0"})
	for k, v := range overrides {
		vars[k] = v
	}
	settings, err := config.Load(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
	require.NoError(t, err)

	a, err := newApp(context.Background(), settings, io.Discard)
	require.NoError(t, err)
	return a
}

func TestApp_Routes(t *testing.T) {
	a := newTestApp(t, map[string]string{"RATE_LIMIT_REQUESTS": "10"})
	defer a.closeLogs()

	tm, err := auth.NewTokenManager("cli-test-secret", time.Hour, "HS256")
	require.NoError(t, err)
	token, err := tm.CreateToken(map[string]interface{}{"sub": "u1"})
	require.NoError(t, err)

	t.Run("gate rejects missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.apiServer.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
	})

	t.Run("gate admits valid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		a.apiServer.Handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))

		var claims map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claims))
		assert.Equal(t, "u1", claims["sub"])
	})

	t.Run("metrics on health server", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.healthServer.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "warden_auth_decisions_total")
	})

	t.Run("liveness on health server", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.healthServer.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/health/live", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a := newTestApp(t, map[string]string{"SHUTDOWN_TIMEOUT": "5s"})
	defer a.closeLogs()
	a.apiServer.Addr = "127.0.0.1:0"
	a.healthServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestApp_RunFailsOnBadAddress(t *testing.T) {
	a := newTestApp(t, nil)
	defer a.closeLogs()

	a.apiServer.Addr = "127.0.0.1:0"
	a.healthServer.Addr = "127.0.0.1:-1"

	err := a.run(context.Background())
	assert.Error(t, err)
}

func TestNewApp_ReleasesStoreOnFailure(t *testing.T) {
	vars := testEnvironment(nil)
	settings, err := config.Load(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
	require.NoError(t, err)
	settings.Auth.Secret = ""

	var opened *storage.MongoErrorStore
	original := connectErrorStore
	connectErrorStore = func(ctx context.Context, uri, collection string) (*storage.MongoErrorStore, error) {
		store, err := original(ctx, uri, collection)
		opened = store
		return store, err
	}
	t.Cleanup(func() { connectErrorStore = original })

	a, err := newApp(context.Background(), settings, io.Discard)
	require.Error(t, err)
	assert.Nil(t, a)
	require.NotNil(t, opened)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, opened.Ping(ctx), mongo.ErrClientDisconnected)
}
