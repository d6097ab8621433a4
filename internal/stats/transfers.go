package stats

import (
	"sync"
	"time"
)

type Kind string

const (
	KindDownload Kind = "download"
	KindUpload   Kind = "upload"
)

var startTime = time.Now()

type counters struct {
	Count    int64
	Failed   int64
	Bytes    int64
	Duration time.Duration
}

type transfers struct {
	mu   sync.RWMutex
	kind map[Kind]*counters
}

var global = &transfers{kind: make(map[Kind]*counters)}

// RecordTransfer counts a finished transfer. Failed transfers add no bytes.
func RecordTransfer(kind Kind, size int64, duration time.Duration, err error) {
	global.mu.Lock()
	defer global.mu.Unlock()

	c, ok := global.kind[kind]
	if !ok {
		c = &counters{}
		global.kind[kind] = c
	}
	if err != nil {
		c.Failed++
		return
	}
	c.Count++
	c.Bytes += size
	c.Duration += duration
}

type Snapshot struct {
	Count       int64
	Failed      int64
	TotalBytes  int64
	AvgDuration time.Duration
}

func GetSnapshot(kind Kind) Snapshot {
	global.mu.RLock()
	defer global.mu.RUnlock()

	c, ok := global.kind[kind]
	if !ok {
		return Snapshot{}
	}
	avg := time.Duration(0)
	if c.Count > 0 {
		avg = c.Duration / time.Duration(c.Count)
	}
	return Snapshot{
		Count:       c.Count,
		Failed:      c.Failed,
		TotalBytes:  c.Bytes,
		AvgDuration: avg,
	}
}

// Uptime is the time since the process loaded this package.
func Uptime() time.Duration {
	return time.Since(startTime)
}

func reset() {
	global.mu.Lock()
	global.kind = make(map[Kind]*counters)
	global.mu.Unlock()
}
