package server

// Server is the lifecycle of the running transports.
type Server interface {
	// RunServer serves until a stop signal arrives, then shuts down.
	RunServer()

	// Shutdown gracefully stops every transport.
	Shutdown()
}
