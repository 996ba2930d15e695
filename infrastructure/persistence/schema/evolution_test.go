package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeSnapshotFromV1(t *testing.T) {
	snap := &Snapshot{
		Version: 1,
		Events: []*EventRecord{
			{
				ID:             "0d1f6f44-322e-4f9c-9f66-0a2b1f3a7e01",
				Timestamp:      "2026-01-01T10:00:00Z",
				Actor:          "user",
				EventType:      "interaction",
				Content:        "an entry from the first backup format",
				SalienceRecord: SalienceRecord{Score: 0.65},
			},
		},
	}

	require.NoError(t, UpgradeSnapshot(snap))

	assert.Equal(t, CurrentSnapshotVersion, snap.Version)
	assert.NotNil(t, snap.Reflections)
	assert.Equal(t, "high", snap.Events[0].SalienceRecord.Level)
	assert.Equal(t, "2026-01-01T10:00:00.000000000Z", snap.Events[0].Timestamp)
}

func TestUpgradeSnapshotCurrentIsNoop(t *testing.T) {
	snap := &Snapshot{Version: CurrentSnapshotVersion}
	require.NoError(t, UpgradeSnapshot(snap))
	assert.Equal(t, CurrentSnapshotVersion, snap.Version)
}

func TestUpgradeSnapshotRejectsNewer(t *testing.T) {
	snap := &Snapshot{Version: CurrentSnapshotVersion + 1}
	assert.Error(t, UpgradeSnapshot(snap))
}

func TestUpgradeSnapshotRejectsUnknownVersion(t *testing.T) {
	snap := &Snapshot{Version: 0}
	assert.Error(t, UpgradeSnapshot(snap))
}

func TestUpgradeSnapshotKeepsExplicitLevels(t *testing.T) {
	snap := &Snapshot{
		Version: 1,
		Events: []*EventRecord{
			{SalienceRecord: SalienceRecord{Score: 0.1, Level: "critical"}},
		},
	}
	require.NoError(t, UpgradeSnapshot(snap))
	assert.Equal(t, "critical", snap.Events[0].SalienceRecord.Level)
}
