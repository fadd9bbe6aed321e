package external

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// BreakerProbe reports an upstream as unhealthy while its circuit breaker is
// open. It never calls the upstream itself.
type BreakerProbe struct {
	name string
	base *BaseClient
}

// NewBreakerProbe creates a probe over base's breaker.
func NewBreakerProbe(name string, base *BaseClient) *BreakerProbe {
	return &BreakerProbe{name: name, base: base}
}

// Name implements core.HealthProbe.
func (p *BreakerProbe) Name() string { return p.name }

// Check implements core.HealthProbe.
func (p *BreakerProbe) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state := p.base.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("circuit breaker %s", state)
	}
	return nil
}

// breakerBacked is implemented by clients that send through a BaseClient.
type breakerBacked interface {
	baseClient() *BaseClient
}

func (c *PostBridgeClient) baseClient() *BaseClient { return c.base }

func (m *OpenAIModel) baseClient() *BaseClient { return m.base }

// HealthProbes returns one BreakerProbe per registered client that has a
// breaker. SDK-backed models (Anthropic, Gemini) have none.
func (r *ClientRegistry) HealthProbes() []*BreakerProbe {
	var probes []*BreakerProbe
	if b, ok := r.Publishing.(breakerBacked); ok {
		probes = append(probes, NewBreakerProbe(postBridgeService, b.baseClient()))
	}
	if b, ok := r.Model.(breakerBacked); ok {
		probes = append(probes, NewBreakerProbe(r.Model.Name(), b.baseClient()))
	}
	return probes
}
