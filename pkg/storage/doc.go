// Package storage opens the external stores warden depends on.
//
// Redis backs the shared rate limiter and is probed by readiness checks:
//
//	client, err := storage.NewRedisClient(settings.Storage.RedisURL)
//
// MongoDB receives error-level log records when LOGS_TYPE is "mongodb":
//
//	store, err := storage.ConnectMongoErrorStore(ctx, settings.Storage.MongoURI, settings.Logging.ErrorCollection)
//	logger, closer, err := observability.NewLoggerWithSink(level, opts, store)
//
// Neither constructor waits for the server, so the process starts and reports
// itself degraded or unready until the dependency comes up.
package storage
