package schema

import (
	"fmt"
	"time"

	"mnemo/domain/core/valueobjects"
)

// CurrentSnapshotVersion is the backup format this build writes.
// Older versions are upgraded on restore; newer ones are rejected.
const CurrentSnapshotVersion = 2

// Snapshot is the JSON backup envelope shared by all store drivers
type Snapshot struct {
	Version     int                 `json:"version"`
	ExportedAt  string              `json:"exported_at"`
	Events      []*EventRecord      `json:"events"`
	Reflections []*ReflectionRecord `json:"reflections,omitempty"`
}

// SnapshotMigration upgrades a snapshot by exactly one version step
type SnapshotMigration struct {
	FromVersion int
	ToVersion   int
	Description string
	Apply       func(*Snapshot) error
}

// migrations must form a contiguous chain ending at the current version
var migrations = []SnapshotMigration{
	{
		FromVersion: 1,
		ToVersion:   2,
		Description: "add reflections section, derive salience levels from scores",
		Apply:       migrateV1reflectionsAndLevels,
	},
}

// UpgradeSnapshot migrates a decoded snapshot in place to the current
// version. Snapshots newer than this build cannot be downgraded.
func UpgradeSnapshot(snap *Snapshot) error {
	if snap.Version > CurrentSnapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported version %d",
			snap.Version, CurrentSnapshotVersion)
	}
	for snap.Version < CurrentSnapshotVersion {
		migration, ok := migrationFrom(snap.Version)
		if !ok {
			return fmt.Errorf("no migration path from snapshot version %d", snap.Version)
		}
		if err := migration.Apply(snap); err != nil {
			return fmt.Errorf("snapshot migration %d to %d failed: %w",
				migration.FromVersion, migration.ToVersion, err)
		}
		snap.Version = migration.ToVersion
	}
	normalizeTimestamps(snap)
	return nil
}

// normalizeTimestamps re-renders event timestamps in TimeKeyFormat.
// Earlier builds wrote RFC3339Nano with trailing zeros trimmed, which
// does not sort lexically; rewriting here keeps restored records usable
// as range keys. Unparseable values are left for ToEvent to reject.
func normalizeTimestamps(snap *Snapshot) {
	for _, record := range snap.Events {
		if record == nil {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, record.Timestamp); err == nil {
			record.Timestamp = ts.UTC().Format(TimeKeyFormat)
		}
	}
}

func migrationFrom(version int) (SnapshotMigration, bool) {
	for _, m := range migrations {
		if m.FromVersion == version {
			return m, true
		}
	}
	return SnapshotMigration{}, false
}

// migrateV1reflectionsAndLevels upgrades the original backup format,
// which carried no reflections and left salience levels implicit.
func migrateV1reflectionsAndLevels(snap *Snapshot) error {
	if snap.Reflections == nil {
		snap.Reflections = []*ReflectionRecord{}
	}
	for _, record := range snap.Events {
		if record == nil {
			continue
		}
		if record.SalienceRecord.Level == "" {
			record.SalienceRecord.Level = string(valueobjects.LevelForScore(record.SalienceRecord.Score))
		}
	}
	return nil
}
