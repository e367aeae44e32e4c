package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
)

// ServerHealth is what the usage page shows next to token usage: how much
// memory the planner holds, how many views are open and how large the
// database directory has grown.
type ServerHealth struct {
	HeapMB     uint64 `json:"heapMb"`
	ReservedMB uint64 `json:"reservedMb"`
	GCRuns     uint32 `json:"gcRuns"`
	Goroutines int    `json:"goroutines"`
	OpenViews  int    `json:"openViews"`
	DataBytes  int64  `json:"dataBytes"`
	DataSize   string `json:"dataSize"`
}

// CollectServerHealth samples the runtime and sums the files under dataDir.
// A blank dataDir, as with in-memory storage, counts as empty.
func CollectServerHealth(dataDir string, openViews int) ServerHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	n := dirBytes(dataDir)
	return ServerHealth{
		HeapMB:     m.HeapAlloc >> 20,
		ReservedMB: m.Sys >> 20,
		GCRuns:     m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		OpenViews:  openViews,
		DataBytes:  n,
		DataSize:   humanSize(n),
	}
}

// dirBytes skips entries it cannot stat; sqlite may rotate its journal mid-walk.
func dirBytes(dir string) int64 {
	if dir == "" {
		return 0
	}
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func humanSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n)
	i := -1
	for v >= 1024 && i < 5 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %cB", v, "KMGTPE"[i])
}
