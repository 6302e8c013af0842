package tourassist

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/tourassist/internal/domain"
)

// Health checks the corpus, the store and the embedding provider.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	status := HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
	c.obs.checked(status)
	return status
}

// providerHealth adapts the embedder chain to health.ProviderChecker.
type providerHealth struct {
	embedder domain.Embedder
}

func (p *providerHealth) HealthCheck(ctx context.Context) error {
	if hc, ok := p.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
