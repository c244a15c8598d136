package client_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"

	"github.com/flightsql/engine/backend/memory"
	"github.com/flightsql/engine/client"
	"github.com/flightsql/engine/server"
)

// startTestServer runs a dispatcher over the in-memory reference backend
// on a random local port and returns its address, stopping it when the
// test completes.
func startTestServer(t *testing.T) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	grpcServer := grpc.NewServer()
	flight.RegisterFlightServiceServer(grpcServer, server.NewFlightServer(memory.New(), server.Config{}))

	go func() {
		_ = grpcServer.Serve(lis)
	}()
	t.Cleanup(grpcServer.GracefulStop)

	time.Sleep(50 * time.Millisecond)
	return lis.Addr().String()
}

func TestExecuteAndGetStream(t *testing.T) {
	addr := startTestServer(t)
	c, err := client.New(client.Config{Address: addr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	info, err := c.Execute(ctx, "SELECT * FROM intTable")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var rows int64
	err = c.GetStream(ctx, info, func(rec arrow.Record) error {
		rows += rec.NumRows()
		rec.Release()
		return nil
	})
	if err != nil {
		t.Fatalf("GetStream: %v", err)
	}
	if rows != 3 {
		t.Fatalf("got %d rows, want 3", rows)
	}
}

func TestExecuteUpdate(t *testing.T) {
	addr := startTestServer(t)
	c, err := client.New(client.Config{Address: addr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	n, err := c.ExecuteUpdate(ctx, "INSERT INTO INTTABLE (keyName, value) VALUES ('D',4)")
	if err != nil {
		t.Fatalf("ExecuteUpdate: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d, want 1", n)
	}
}

func TestPreparedStatementLifecycle(t *testing.T) {
	addr := startTestServer(t)
	c, err := client.New(client.Config{Address: addr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	stmt, err := c.Prepare(ctx, "SELECT * FROM intTable")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if stmt.ParameterSchema() != nil {
		t.Fatal("expected nil parameter schema for a parameterless SELECT")
	}

	info, err := stmt.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var rows int64
	err = c.GetStream(ctx, info, func(rec arrow.Record) error {
		rows += rec.NumRows()
		rec.Release()
		return nil
	})
	if err != nil {
		t.Fatalf("GetStream: %v", err)
	}
	if rows != 3 {
		t.Fatalf("got %d rows, want 3", rows)
	}

	if err := stmt.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := stmt.Close(ctx); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}

	if _, err := stmt.Execute(ctx); err != client.ErrClosed {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestGetTablesMetadata(t *testing.T) {
	addr := startTestServer(t)
	c, err := client.New(client.Config{Address: addr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	info, err := c.GetTables(ctx, nil, nil, nil, []string{"TABLE"}, false)
	if err != nil {
		t.Fatalf("GetTables: %v", err)
	}

	var names []string
	err = c.GetStream(ctx, info, func(rec arrow.Record) error {
		col := rec.Column(2).(*array.String) // table_name
		for i := 0; i < col.Len(); i++ {
			names = append(names, col.Value(i))
		}
		rec.Release()
		return nil
	})
	if err != nil {
		t.Fatalf("GetStream: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d table names, want 2: %v", len(names), names)
	}
}
