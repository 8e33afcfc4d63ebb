// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports 503 naming the first unhealthy dependency.
func HealthHandler(checks map[string]Pinger, order ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, name := range order {
			p, ok := checks[name]
			if !ok {
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				slog.Warn("health check failed", "dependency", name, "error", err)
				http.Error(w, name+" unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	}
}

// Serve starts the health server on the given port. It binds the port
// immediately and shuts down when ctx is cancelled.
func Serve(ctx context.Context, port int, handler http.Handler) (<-chan struct{}, error) {
	mux := http.NewServeMux()
	mux.Handle("/health", handler)

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind health port %d: %w", port, err)
	}

	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("health server shutdown error", "error", err)
		}
	}()

	go func() {
		defer close(done)
		slog.Info("health server listening", "port", port)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	return done, nil
}
