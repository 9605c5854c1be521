package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"

	"pidash/internal/models"
)

// Collector captures a single metric type on demand. A failure affects only
// the requested type; callers decide whether to skip or surface it.
type Collector interface {
	Collect(ctx context.Context, t models.MetricType) (models.Snapshot, error)
}

// System reads host metrics through gopsutil.
type System struct {
	// DiskPath is the mount point measured for disk usage, "/" by default.
	DiskPath string
}

// NewSystem returns a collector measuring disk usage at diskPath.
func NewSystem(diskPath string) *System {
	if diskPath == "" {
		diskPath = "/"
	}
	return &System{DiskPath: diskPath}
}

// Collect captures one snapshot of the requested metric type.
func (s *System) Collect(ctx context.Context, t models.MetricType) (models.Snapshot, error) {
	var (
		payload models.Payload
		err     error
	)
	switch t {
	case models.MetricCPU:
		payload, err = s.collectCPU(ctx)
	case models.MetricMemory:
		payload, err = s.collectMemory(ctx)
	case models.MetricDisk:
		payload, err = s.collectDisk(ctx)
	case models.MetricTemperature:
		payload, err = s.collectTemperature(ctx)
	case models.MetricNetwork:
		payload, err = s.collectNetwork(ctx)
	case models.MetricUptime:
		payload, err = s.collectUptime(ctx)
	default:
		return models.Snapshot{}, fmt.Errorf("unknown metric type %q", t)
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("collect %s: %w", t, err)
	}
	return models.Snapshot{Type: t, Timestamp: time.Now().Unix(), Payload: payload}, nil
}

func (s *System) collectCPU(ctx context.Context) (models.Payload, error) {
	// Percent with a zero interval measures utilisation since the previous
	// call, which matches the fixed sampling cadence.
	totals, err := cpu.PercentWithContext(ctx, 0, false)
	total, err := totalPercent(totals, err)
	if err != nil {
		return nil, err
	}
	perCPU, _ := cpu.PercentWithContext(ctx, 0, true)
	count, _ := cpu.CountsWithContext(ctx, true)

	var freq float64
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		freq = infos[0].Mhz
	}

	return models.CPUPayload{
		Percent:      total,
		PerCPU:       perCPU,
		Count:        count,
		FrequencyMHz: freq,
	}, nil
}

func (s *System) collectMemory(ctx context.Context) (models.Payload, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}
	payload := models.MemoryPayload{
		Total:     vm.Total,
		Available: vm.Available,
		Used:      vm.Used,
		Percent:   vm.UsedPercent,
	}
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil && swap != nil {
		payload.Swap = models.SwapUsage{
			Total:   swap.Total,
			Used:    swap.Used,
			Percent: swap.UsedPercent,
		}
	}
	return payload, nil
}

func (s *System) collectDisk(ctx context.Context) (models.Payload, error) {
	usage, err := disk.UsageWithContext(ctx, s.DiskPath)
	if err != nil {
		return nil, fmt.Errorf("disk usage %s: %w", s.DiskPath, err)
	}
	payload := models.DiskPayload{
		Path:    usage.Path,
		Total:   usage.Total,
		Used:    usage.Used,
		Free:    usage.Free,
		Percent: usage.UsedPercent,
	}
	if counters, err := disk.IOCountersWithContext(ctx); err == nil && len(counters) > 0 {
		io := models.DiskIO{}
		for _, ctr := range counters {
			io.ReadBytes += ctr.ReadBytes
			io.WriteBytes += ctr.WriteBytes
			io.ReadCount += ctr.ReadCount
			io.WriteCount += ctr.WriteCount
		}
		payload.IO = &io
	}
	return payload, nil
}

func (s *System) collectTemperature(ctx context.Context) (models.Payload, error) {
	stats, err := sensors.TemperaturesWithContext(ctx)
	if err != nil {
		// Partial sensor errors still return the readable subset.
		if len(stats) == 0 {
			return nil, fmt.Errorf("sensor temperatures: %w", err)
		}
	}
	readings := make([]models.SensorReading, 0, len(stats))
	for _, st := range stats {
		readings = append(readings, models.SensorReading{
			Label:   st.SensorKey,
			Celsius: st.Temperature,
		})
	}
	return models.TemperaturePayload{Sensors: readings}, nil
}

func (s *System) collectNetwork(ctx context.Context) (models.Payload, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	total, err := summedCounters(counters, err)
	if err != nil {
		return nil, err
	}
	return models.NetworkPayload{
		BytesSent:   total.BytesSent,
		BytesRecv:   total.BytesRecv,
		PacketsSent: total.PacketsSent,
		PacketsRecv: total.PacketsRecv,
		ErrIn:       total.Errin,
		ErrOut:      total.Errout,
		DropIn:      total.Dropin,
		DropOut:     total.Dropout,
	}, nil
}

func (s *System) collectUptime(ctx context.Context) (models.Payload, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}
	return models.UptimePayload{
		BootTime:        info.BootTime,
		UptimeSeconds:   info.Uptime,
		UptimeFormatted: formatUptime(info.Uptime),
	}, nil
}

// totalPercent validates the overall-utilisation result. An empty slice with
// a nil error still means no sample was taken.
func totalPercent(totals []float64, err error) (float64, error) {
	if err != nil {
		return 0, fmt.Errorf("cpu percent: %w", err)
	}
	if len(totals) == 0 {
		return 0, errors.New("cpu percent: no samples returned")
	}
	return totals[0], nil
}

// summedCounters validates the aggregate interface counters, which arrive as
// a single pre-summed entry.
func summedCounters(counters []net.IOCountersStat, err error) (net.IOCountersStat, error) {
	if err != nil {
		return net.IOCountersStat{}, fmt.Errorf("net io counters: %w", err)
	}
	if len(counters) == 0 {
		return net.IOCountersStat{}, errors.New("net io counters: no counters returned")
	}
	return counters[0], nil
}

func formatUptime(seconds uint64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%d days, %d:%02d:%02d", days, hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
}
