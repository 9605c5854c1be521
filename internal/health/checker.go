package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pidash/internal/config"
	"pidash/internal/models"
)

// Checker probes configured services on a fixed period and caches the last
// completed result per service. Reads never block on an in-flight probe: each
// result is swapped in whole under the lock once its probe finishes.
//
// Probes are single-flight per service. When a probe is still running as the
// next cycle fires, that service is skipped for the cycle and the previous
// result stays visible.
type Checker struct {
	services []config.Service
	client   *http.Client
	interval time.Duration
	log      *zap.Logger

	mu       sync.RWMutex
	results  map[string]models.HealthResult
	inflight map[string]bool

	stopMu sync.Mutex
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewChecker builds a checker over the configured services. Every service
// starts in the unknown state until its first probe completes.
func NewChecker(services []config.Service, interval, timeout time.Duration, log *zap.Logger) *Checker {
	c := &Checker{
		services: services,
		client:   &http.Client{Timeout: timeout},
		interval: interval,
		log:      log,
		results:  make(map[string]models.HealthResult, len(services)),
		inflight: make(map[string]bool, len(services)),
	}
	for _, svc := range services {
		c.results[svc.Name] = models.HealthResult{
			Name:           svc.Name,
			URL:            svc.URL,
			HealthEndpoint: healthEndpoint(svc),
			Status:         models.StatusUnknown,
		}
	}
	return c
}

// Start launches the probe loop. No-op when already running.
func (c *Checker) Start() {
	c.stopMu.Lock()
	if c.stop != nil {
		c.stopMu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.stop = stop
	c.stopMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		c.CheckAll(context.Background())
		for {
			select {
			case <-ticker.C:
				c.CheckAll(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the probe loop. Probes already in flight finish on their own;
// their results land in the cache and are simply never read again.
func (c *Checker) Stop() {
	c.stopMu.Lock()
	stop := c.stop
	c.stop = nil
	c.stopMu.Unlock()
	if stop != nil {
		close(stop)
	}
	c.wg.Wait()
}

// CheckAll starts one probe per enabled service that is not already being
// probed. It returns without waiting for the probes to complete.
func (c *Checker) CheckAll(ctx context.Context) {
	for _, svc := range c.services {
		if !svc.Enabled {
			continue
		}
		c.mu.Lock()
		if c.inflight[svc.Name] {
			c.mu.Unlock()
			c.log.Debug("probe still in flight, skipping cycle",
				zap.String("service", svc.Name))
			continue
		}
		c.inflight[svc.Name] = true
		c.mu.Unlock()

		go func(svc config.Service) {
			result := c.probe(ctx, svc)
			c.mu.Lock()
			c.results[svc.Name] = result
			c.inflight[svc.Name] = false
			c.mu.Unlock()
		}(svc)
	}
}

func (c *Checker) probe(ctx context.Context, svc config.Service) models.HealthResult {
	endpoint := healthEndpoint(svc)
	fullURL := strings.TrimRight(svc.URL, "/") + endpoint

	result := models.HealthResult{
		Name:           svc.Name,
		URL:            svc.URL,
		HealthEndpoint: endpoint,
		Status:         models.StatusUnknown,
		LastCheck:      time.Now(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		result.Status = models.StatusUnhealthy
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		result.Status = models.StatusUnhealthy
		result.Error = probeErrorText(err)
		return result
	}
	defer resp.Body.Close()

	elapsed := time.Since(start).Milliseconds()
	result.ResponseTimeMs = &elapsed

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Status = models.StatusHealthy
	} else {
		result.Status = models.StatusUnhealthy
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}

// GetAll returns the last completed result per service in configured order.
// It never blocks on an in-flight probe.
func (c *Checker) GetAll() []models.HealthResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.HealthResult, 0, len(c.services))
	for _, svc := range c.services {
		if r, ok := c.results[svc.Name]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the last result for one service by name.
func (c *Checker) Get(name string) (models.HealthResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[name]
	return r, ok
}

func healthEndpoint(svc config.Service) string {
	if svc.HealthEndpoint == "" {
		return "/health"
	}
	return svc.HealthEndpoint
}

func probeErrorText(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "timeout"
	}
	return err.Error()
}
