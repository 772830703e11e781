// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rolechat/internal/model"
)

func TestRegistry_UpsertOrdersByRecency(t *testing.T) {
	var r Registry
	r.Upsert(session("a", t0))
	r.Upsert(session("b", t0.Add(2*time.Hour)))
	r.Upsert(session("c", t0.Add(time.Hour)))
	assert.Equal(t, []string{"b", "c", "a"}, sessionIDs(r.Snapshot()))

	r.Upsert(session("a", t0.Add(3*time.Hour)))
	assert.Equal(t, []string{"a", "b", "c"}, sessionIDs(r.Snapshot()))
}

func TestRegistry_UpsertTieNewestInsertFirst(t *testing.T) {
	var r Registry
	r.Upsert(session("a", t0))
	r.Upsert(session("b", t0))
	assert.Equal(t, []string{"b", "a"}, sessionIDs(r.Snapshot()))
	r.Upsert(session("a", t0))
	assert.Equal(t, []string{"a", "b"}, sessionIDs(r.Snapshot()))
}

func TestRegistry_UpsertIdempotent(t *testing.T) {
	var r Registry
	r.Upsert(session("a", t0))
	r.Upsert(session("b", t0.Add(time.Minute)))

	s := session("a", t0.Add(time.Hour))
	r.Upsert(s)
	once := r.Snapshot()
	r.Upsert(s)
	assert.Equal(t, once, r.Snapshot())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_UpsertKeepsSortedUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var r Registry
	for i := 0; i < 500; i++ {
		id := string(rune('a' + rng.Intn(8)))
		r.Upsert(session(id, t0.Add(time.Duration(rng.Intn(20))*time.Minute)))

		snap := r.Snapshot()
		seen := map[string]bool{}
		for j, s := range snap {
			require.False(t, seen[s.ID], "duplicate %s", s.ID)
			seen[s.ID] = true
			if j > 0 {
				require.False(t, s.UpdatedAt.After(snap[j-1].UpdatedAt), "unsorted at %d", j)
			}
		}
	}
}

func TestRegistry_ReplaceKeepsPositionAndTimestamp(t *testing.T) {
	var r Registry
	r.Upsert(session("a", t0.Add(2*time.Hour)))
	r.Upsert(session("b", t0))

	updated := session("b", t0.Add(9*time.Hour))
	updated.Title = "Renamed"
	require.True(t, r.Replace(updated))
	assert.False(t, r.Replace(session("zzz", t0)))

	snap := r.Snapshot()
	assert.Equal(t, []string{"a", "b"}, sessionIDs(snap))
	assert.Equal(t, "Renamed", snap[1].Title)
	assert.Equal(t, t0, snap[1].UpdatedAt)
}

func TestRegistry_ReplaceAllSortsAndDedups(t *testing.T) {
	var r Registry
	first := session("a", t0)
	first.Title = "first"
	dup := session("a", t0.Add(time.Hour))
	dup.Title = "dup"
	r.ReplaceAll([]*model.Session{first, session("b", t0.Add(time.Minute)), dup, nil, session("c", t0)})

	snap := r.Snapshot()
	assert.Equal(t, []string{"b", "a", "c"}, sessionIDs(snap))
	assert.Equal(t, "first", snap[1].Title)

	assert.True(t, r.Remove("b"))
	assert.False(t, r.Remove("b"))
	_, ok := r.Get("b")
	assert.False(t, ok)
}

func TestRegistry_SnapshotIsolated(t *testing.T) {
	var r Registry
	r.Upsert(session("a", t0))
	r.Snapshot()[0].Title = "changed"
	got, _ := r.Get("a")
	assert.Equal(t, "Session a", got.Title)
}
