// Package tracing wires optional Langfuse tracing into the eino callback
// chain so generation calls can be inspected alongside the pipeline
// visualization.
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is used when LANGFUSE_HOST is unset (a local Langfuse
// docker-compose deployment).
const defaultHost = "http://localhost:3000"

// Setup builds the Langfuse callback handler from LANGFUSE_PUBLIC_KEY,
// LANGFUSE_SECRET_KEY, and LANGFUSE_HOST. The third return value reports
// whether tracing is configured; when it is false the handler and flush
// function are nil and tracing stays off. The flush function must run before
// process exit or buffered traces are lost.
func Setup() (callbacks.Handler, func(), bool) {
	publicKey := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secretKey := os.Getenv("LANGFUSE_SECRET_KEY")
	if publicKey == "" || secretKey == "" {
		return nil, nil, false
	}

	handler, flush := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      hostFromEnv(),
		PublicKey: publicKey,
		SecretKey: secretKey,
	})
	return handler, flush, true
}

// hostFromEnv resolves the Langfuse API host.
func hostFromEnv() string {
	if h := os.Getenv("LANGFUSE_HOST"); h != "" {
		return h
	}
	return defaultHost
}
