// Package payment abstracts the synchronous payment authorization step of a
// booking attempt. Real settlement mechanics (retries, webhooks, async
// capture) live outside this service.
package payment

import (
	"context"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// Gateway authorizes a charge for the given amount. A false result is a
// decline; a non-nil error is a transport failure and means the outcome is
// unknown. The booking engine calls Authorize at most once per attempt.
type Gateway interface {
	Authorize(ctx context.Context, amount decimal.Decimal) (bool, error)
}

// SimulatedGateway approves a configurable fraction of charges. It stands in
// for a real processor in local runs and load tests.
type SimulatedGateway struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

// NewSimulated returns a gateway approving successRate of charges (clamped
// to [0,1]). The seed makes outcomes reproducible.
func NewSimulated(successRate float64, seed uint64) *SimulatedGateway {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &SimulatedGateway{
		rng:         rand.New(rand.NewSource(int64(seed))),
		successRate: successRate,
	}
}

func (g *SimulatedGateway) Authorize(ctx context.Context, amount decimal.Decimal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < g.successRate, nil
}
