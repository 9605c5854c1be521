package models

import "fmt"

// MetricType identifies one of the host metric families the dashboard tracks.
type MetricType string

const (
	MetricCPU         MetricType = "cpu"
	MetricMemory      MetricType = "memory"
	MetricDisk        MetricType = "disk"
	MetricTemperature MetricType = "temperature"
	MetricNetwork     MetricType = "network"
	MetricUptime      MetricType = "uptime"
)

// AllMetricTypes returns every metric type in a stable order.
func AllMetricTypes() []MetricType {
	return []MetricType{
		MetricCPU,
		MetricMemory,
		MetricDisk,
		MetricTemperature,
		MetricNetwork,
		MetricUptime,
	}
}

// ParseMetricType maps a URL path segment to a MetricType.
func ParseMetricType(s string) (MetricType, error) {
	switch MetricType(s) {
	case MetricCPU, MetricMemory, MetricDisk, MetricTemperature, MetricNetwork, MetricUptime:
		return MetricType(s), nil
	}
	return "", fmt.Errorf("unknown metric type %q", s)
}

// Payload is the metric-specific value carried by a Snapshot. Exactly one
// concrete payload type exists per MetricType so handlers and the query
// engine can switch exhaustively.
type Payload interface {
	MetricType() MetricType
}

// CPUPayload captures processor utilisation.
type CPUPayload struct {
	Percent      float64   `json:"percent"`
	PerCPU       []float64 `json:"per_cpu,omitempty"`
	Count        int       `json:"count"`
	FrequencyMHz float64   `json:"frequency_mhz,omitempty"`
}

func (CPUPayload) MetricType() MetricType { return MetricCPU }

// SwapUsage is the swap portion of a memory sample.
type SwapUsage struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Percent float64 `json:"percent"`
}

// MemoryPayload captures virtual memory and swap usage.
type MemoryPayload struct {
	Total     uint64    `json:"total"`
	Available uint64    `json:"available"`
	Used      uint64    `json:"used"`
	Percent   float64   `json:"percent"`
	Swap      SwapUsage `json:"swap"`
}

func (MemoryPayload) MetricType() MetricType { return MetricMemory }

// DiskIO aggregates block device counters across all devices.
type DiskIO struct {
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
	ReadCount  uint64 `json:"read_count"`
	WriteCount uint64 `json:"write_count"`
}

// DiskPayload captures usage of the monitored mount point plus IO counters.
type DiskPayload struct {
	Path    string  `json:"path"`
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
	IO      *DiskIO `json:"io,omitempty"`
}

func (DiskPayload) MetricType() MetricType { return MetricDisk }

// SensorReading is one temperature sensor sample.
type SensorReading struct {
	Label   string  `json:"label"`
	Celsius float64 `json:"celsius"`
}

// TemperaturePayload carries all readable temperature sensors. The slice is
// empty on hosts without exposed sensors; that is a valid sample, not an error.
type TemperaturePayload struct {
	Sensors []SensorReading `json:"sensors"`
}

func (TemperaturePayload) MetricType() MetricType { return MetricTemperature }

// NetworkPayload captures cumulative interface counters summed across NICs.
type NetworkPayload struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
	ErrIn       uint64 `json:"errin"`
	ErrOut      uint64 `json:"errout"`
	DropIn      uint64 `json:"dropin"`
	DropOut     uint64 `json:"dropout"`
}

func (NetworkPayload) MetricType() MetricType { return MetricNetwork }

// UptimePayload captures boot time and elapsed uptime.
type UptimePayload struct {
	BootTime        uint64 `json:"boot_time"`
	UptimeSeconds   uint64 `json:"uptime_seconds"`
	UptimeFormatted string `json:"uptime_formatted"`
}

func (UptimePayload) MetricType() MetricType { return MetricUptime }

// Snapshot is one timestamped capture of a single metric type. Snapshots are
// immutable once created.
type Snapshot struct {
	Type      MetricType `json:"type"`
	Timestamp int64      `json:"timestamp"`
	Payload   Payload    `json:"payload"`
}

// Point is one history sample returned to API consumers. Data holds either a
// typed Payload (buffer-resident samples) or the raw JSON read back from the
// durable store; both marshal to the same wire shape.
type Point struct {
	Timestamp int64 `json:"timestamp"`
	Data      any   `json:"data"`
}
