// Package server runs the reference server transports: the HTTP API and the
// gRPC health service. It opens the listeners, starts serving, and shuts all
// transports down gracefully on SIGTERM, SIGINT or SIGQUIT.
package server
