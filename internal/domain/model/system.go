package model

import "time"

// SystemSnapshot is a point-in-time view of the host running the console.
type SystemSnapshot struct {
	Hostname    string
	Platform    string
	Release     string
	Arch        string
	CPUModel    string
	CPUCores    int
	CPUMhz      float64
	MemoryTotal uint64
	MemoryFree  uint64
	MemoryUsed  uint64
	LoadAvg     [3]float64
	Uptime      time.Duration
	CapturedAt  time.Time
}
