// Package backup persists point-in-time nickname snapshots, one per guild.
// A snapshot is single-use: it is written by a backup (a second backup
// silently overwrites the first) and deleted after a successful restore.
package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrStorage wraps underlying storage I/O failures so callers can
// distinguish them from an absent snapshot, which is never an error.
var ErrStorage = errors.New("backup: storage failure")

// Snapshot maps member ID to the nickname held at backup time. An empty
// nickname means the member had none set.
type Snapshot map[string]string

// Store persists one Snapshot per guild.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save writes the snapshot for the guild, overwriting any prior one.
	Save(ctx context.Context, guildID string, snap Snapshot) error

	// Load returns the stored snapshot for the guild, or an empty
	// Snapshot if none exists. Absence is not an error.
	Load(ctx context.Context, guildID string) (Snapshot, error)

	// Delete removes the stored snapshot. Deleting a guild that has no
	// snapshot is not an error.
	Delete(ctx context.Context, guildID string) error
}

// record is the wire form of one snapshot entry. Member IDs are persisted
// as 64-bit integers, matching Discord snowflakes.
type record struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

// encodeRecords converts a Snapshot into wire records, sorted by ID for
// stable output. Entries whose ID is not a valid snowflake are rejected.
func encodeRecords(snap Snapshot) ([]record, error) {
	recs := make([]record, 0, len(snap))
	for id, nick := range snap {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("backup: member id %q is not a snowflake: %w", id, err)
		}
		recs = append(recs, record{ID: n, Nickname: nick})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

// decodeRecords converts wire records back into a Snapshot.
func decodeRecords(recs []record) Snapshot {
	snap := make(Snapshot, len(recs))
	for _, r := range recs {
		snap[strconv.FormatInt(r.ID, 10)] = r.Nickname
	}
	return snap
}
