// Package hostinfo implements the SystemProbe port with gopsutil.
package hostinfo

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SystemProbe = (*Probe)(nil)

// Probe reads host facts from the local machine.
type Probe struct {
	now func() time.Time
}

// NewProbe creates a Probe.
func NewProbe() *Probe {
	return &Probe{now: time.Now}
}

// Snapshot collects host, CPU, memory and load figures. CPU details and
// load averages are best effort: some platforms do not expose them, and
// their absence leaves zero values rather than failing the snapshot.
func (p *Probe) Snapshot(ctx context.Context) (model.SystemSnapshot, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return model.SystemSnapshot{}, fmt.Errorf("read host info: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return model.SystemSnapshot{}, fmt.Errorf("read memory: %w", err)
	}

	snap := model.SystemSnapshot{
		Hostname:    info.Hostname,
		Platform:    info.OS,
		Release:     info.KernelVersion,
		Arch:        runtime.GOARCH,
		CPUCores:    runtime.NumCPU(),
		MemoryTotal: vm.Total,
		MemoryFree:  vm.Free,
		MemoryUsed:  vm.Total - vm.Free,
		Uptime:      time.Duration(info.Uptime) * time.Second,
		CapturedAt:  p.now().UTC(),
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		snap.CPUModel = cpus[0].ModelName
		snap.CPUMhz = cpus[0].Mhz
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		snap.LoadAvg = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}

	return snap, nil
}
