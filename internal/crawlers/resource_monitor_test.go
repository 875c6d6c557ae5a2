package crawlers

import (
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceMonitor_SampleTracksPeak(t *testing.T) {
	readings := []float64{40, 93, 70}
	i := 0

	rm := NewResourceMonitor(90)
	rm.cpuPercent = func() float64 { return 12.5 }
	rm.virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		used := readings[i]
		i++
		return &mem.VirtualMemoryStat{Total: 8 << 30, Available: 2 << 30, UsedPercent: used}, nil
	}

	assert.Equal(t, "normal", rm.Sample().MemoryPressure)
	assert.Equal(t, "warning", rm.Sample().MemoryPressure)
	status := rm.Sample()
	assert.Equal(t, 12.5, status.CPUPercent)

	snap := rm.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 3, snap.Samples)
	assert.Equal(t, 93.0, snap.PeakUsedPercent)
	assert.Equal(t, uint64(8<<30), snap.TotalMemory)
}

func TestResourceMonitor_SampleError(t *testing.T) {
	rm := NewResourceMonitor(0)
	rm.cpuPercent = func() float64 { return 0 }
	rm.virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("unsupported")
	}

	assert.Equal(t, "unknown", rm.Sample().MemoryPressure)
	assert.Nil(t, rm.Snapshot())
}

func TestPressureLevel(t *testing.T) {
	assert.Equal(t, "normal", pressureLevel(50, 90))
	assert.Equal(t, "warning", pressureLevel(91, 90))
	assert.Equal(t, "critical", pressureLevel(96, 90))
	assert.Equal(t, "emergency", pressureLevel(99, 90))
}
