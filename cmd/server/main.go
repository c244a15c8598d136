// Command server runs a demo Flight SQL server over the in-memory
// reference backend (spec.md §8), for manual testing with the client
// package.
package main

import (
	"flag"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/flight"

	"github.com/flightsql/engine/backend/memory"
	"github.com/flightsql/engine/server"
)

func main() {
	addr := flag.String("addr", "localhost", "address to listen on")
	port := flag.Int("port", 33333, "port to listen on")
	flag.Parse()

	logger := slog.Default()

	backend := memory.New()
	flightServer := server.NewFlightServer(backend, server.Config{})

	srv := flight.NewServerWithMiddleware(nil)
	srv.RegisterFlightService(flightServer)

	listenAddr := net.JoinHostPort(*addr, strconv.Itoa(*port))
	if err := srv.Init(listenAddr); err != nil {
		logger.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}
	srv.SetShutdownOnSignals(os.Interrupt, os.Kill)

	logger.Info("flight sql server listening", "address", listenAddr)

	if err := srv.Serve(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
