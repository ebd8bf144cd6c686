package memory

import (
	"context"
	"strings"
	"sync"
)

// Gateway is an in-process funds gateway. Transfers accumulate per
// destination so tests can assert what a creator actually received, and a
// forced error simulates the external transfer failing mid-withdrawal.
type Gateway struct {
	mu          sync.Mutex
	balances    map[string]int64
	transferErr error
}

func NewGateway() *Gateway {
	return &Gateway{balances: make(map[string]int64)}
}

// SetTransferError forces every subsequent Transfer to fail with err until
// cleared with nil.
func (g *Gateway) SetTransferError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transferErr = err
}

func (g *Gateway) Transfer(_ context.Context, destination string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transferErr != nil {
		return g.transferErr
	}
	g.balances[strings.TrimSpace(destination)] += amount
	return nil
}

// Balance returns the total transferred to destination so far.
func (g *Gateway) Balance(destination string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[strings.TrimSpace(destination)]
}
