package models

import "time"

// ServiceStatus is the probe outcome for a monitored service.
type ServiceStatus string

const (
	StatusUnknown   ServiceStatus = "unknown"
	StatusHealthy   ServiceStatus = "healthy"
	StatusUnhealthy ServiceStatus = "unhealthy"
)

// HealthResult is the last completed probe outcome for one service. It is
// overwritten whole on every probe cycle; no history is retained.
type HealthResult struct {
	Name           string        `json:"name"`
	URL            string        `json:"url"`
	HealthEndpoint string        `json:"health_endpoint"`
	Status         ServiceStatus `json:"status"`
	ResponseTimeMs *int64        `json:"response_time_ms,omitempty"`
	Error          string        `json:"error,omitempty"`
	LastCheck      time.Time     `json:"last_check"`
}

// Container describes one local container for the inventory endpoint.
type Container struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	Status  string `json:"status"`
	Created string `json:"created"`
}

// ContainerInventory is the summary served by the container endpoint.
type ContainerInventory struct {
	Containers []Container `json:"containers"`
	Total      int         `json:"total"`
	Running    int         `json:"running"`
	Stopped    int         `json:"stopped"`
}
