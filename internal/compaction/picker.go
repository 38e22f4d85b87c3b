package compaction

import (
	"github.com/lanterndb/lanterndb/internal/manifest"
	"github.com/lanterndb/lanterndb/internal/version"
)

const mebibyte = 1 << 20

// Limits configures the per-level table-count thresholds that trigger
// compaction, per SPEC_FULL §4.5.
type Limits struct {
	// Level0FileLimit is level 0's table-count trigger (e.g. 4).
	Level0FileLimit int

	// LevelSizeExpandFactor and TargetTableSize feed the level L >= 1
	// limit formula: (expand_factor^L) * MiB / target_table_size.
	LevelSizeExpandFactor int
	TargetTableSize       int64
}

func (lim Limits) fileLimit(level int) int {
	if level == 0 {
		return lim.Level0FileLimit
	}
	limit := 1.0
	for range level {
		limit *= float64(lim.LevelSizeExpandFactor)
	}
	limit = limit * mebibyte / float64(lim.TargetTableSize)
	return int(limit)
}

// ScheduleOne scans levels from 0 upward and compacts the first level
// whose table count exceeds its limit into the next level, returning
// the resulting LevelChange plus the underlying Result's statistics
// (tombstones dropped, bytes written). It returns a nil change (no
// error) when no level currently needs compaction.
func ScheduleOne(v *version.Version, lim Limits, fm TableFileManager) (change *manifest.LevelChange, tombstonesDropped uint64, bytesWritten int64, err error) {
	for level := 0; level < version.MaxLevels-1; level++ {
		if v.Levels[level].FileCount() <= lim.fileLimit(level) {
			continue
		}
		picked, ok := v.Levels[level].PickOldest()
		if !ok {
			continue
		}

		target := level + 1
		discardTombstones := true
		for i := target + 1; i < version.MaxLevels; i++ {
			if v.Levels[i].FileCount() > 0 {
				discardTombstones = false
				break
			}
		}

		result, err := CompactInto(v, level, picked, discardTombstones, lim.TargetTableSize, fm)
		if err != nil {
			return nil, 0, 0, err
		}
		return result.LevelChange(), result.TombstonesDropped, result.BytesWritten, nil
	}
	return nil, 0, 0, nil
}
