/*
 *
 * Copyright 2025 the Virtual Audio Bridge authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// shutdownTimeout bounds how long in-flight connections may linger once a
// termination signal arrives.
const shutdownTimeout = 5 * time.Second

// ShutdownHandler manages graceful shutdown on SIGINT or SIGTERM.
type ShutdownHandler struct {
	server *Server
	ctx    context.Context
	cancel context.CancelFunc
}

// NewShutdownHandler creates a handler that listens for termination
// signals. The provided context is the parent for shutdown operations.
func NewShutdownHandler(server *Server, ctx context.Context) *ShutdownHandler {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ShutdownHandler{
		server: server,
		ctx:    shutdownCtx,
		cancel: cancel,
	}
}

// Wait blocks until a termination signal is received, then shuts the server
// down. Call from the main goroutine.
func (h *ShutdownHandler) Wait() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	h.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.server.Shutdown(shutdownCtx)
}

// Context returns the context that is cancelled when shutdown begins.
func (h *ShutdownHandler) Context() context.Context {
	return h.ctx
}
