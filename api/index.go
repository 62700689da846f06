package handler

import (
	"net/http"
	"sync"

	"innkeeper/config"
	"innkeeper/di"
	"innkeeper/shared/logger"
	httpTransport "innkeeper/transport/http"
)

var (
	server *httpTransport.HTTP
	once   sync.Once
)

// Handler is the serverless entry point. The dependency graph is built once
// per instance and reused across invocations.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger()

		logger.SetLogLevel(cfg)

		server = di.InitializeService()
	})

	r.RequestURI = r.URL.String()

	server.ServeHTTP(w, r)
}
