package client

import (
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// connPool is a best-effort, per-location reuse pool of gRPC connections
// (spec.md §4.5): GetStream borrows the connection for an endpoint's
// Location and leaves it in the pool afterward rather than tearing it
// down, so a client streaming many endpoints at the same location dials
// that location only once.
type connPool struct {
	dialOpts []grpc.DialOption

	mu    sync.Mutex
	byLoc map[string]*grpc.ClientConn
}

func newConnPool(dialOpts []grpc.DialOption) *connPool {
	return &connPool{dialOpts: dialOpts, byLoc: map[string]*grpc.ClientConn{}}
}

// get returns the pooled connection for address, dialing it on first use.
func (p *connPool) get(address string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.byLoc[address]; ok {
		return conn, nil
	}

	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, p.dialOpts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, err
	}
	p.byLoc[address] = conn
	return conn, nil
}

// closeAll closes every pooled connection.
func (p *connPool) closeAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for addr, conn := range p.byLoc {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.byLoc, addr)
	}
	return firstErr
}
