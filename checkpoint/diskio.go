package checkpoint

import (
	"time"

	"github.com/lufia/iostat"

	"github.com/Rodario/dash/internal/nlog"
)

// DiskThroughputSample is a best-effort local disk I/O reading
// attached to an export's metrics; platforms lufia/iostat doesn't
// support return ok=false and Export proceeds without it.
type DiskThroughputSample struct {
	Device     string
	ReadBytes  uint64
	WriteBytes uint64
	SampledAt  time.Time
}

// sampleDiskThroughput reads the first available drive's counters.
// Kept as a standalone helper (rather than folded into Export)
// because it is advisory: a failure here must never fail a snapshot.
func sampleDiskThroughput() (DiskThroughputSample, bool) {
	drives, err := iostat.ReadDriveStats()
	if err != nil || len(drives) == 0 {
		nlog.Infoln("checkpoint: disk throughput sample unavailable", "err", err)
		return DiskThroughputSample{}, false
	}
	d := drives[0]
	return DiskThroughputSample{
		Device:     d.Name,
		ReadBytes:  uint64(d.BytesRead),
		WriteBytes: uint64(d.BytesWritten),
		SampledAt:  time.Now(),
	}, true
}
