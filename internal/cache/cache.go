// Package cache memoizes engine simulations so repeated requests for the same
// scenario (slider replays, stream restarts) reuse the collected frames.
package cache

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/mathcraft/internal/core/kinematics"
)

type key struct {
	input     kinematics.CollisionInput
	maxFrames int
}

type entry struct {
	sim kinematics.Simulation
	err error
}

// shard is a bounded FIFO map guarded by its own mutex
type shard struct {
	mx      sync.RWMutex
	entries map[key]entry
	order   []key
}

// SimulationCache is a sharded, bounded memo of kinematics.Simulate results.
type SimulationCache struct {
	shards   []shard
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats is a snapshot of cache counters
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// New creates a cache with shardCount shards of perShard entries each.
func New(shardCount, perShard int) *SimulationCache {
	if shardCount <= 0 {
		shardCount = 16
	}
	if perShard <= 0 {
		perShard = 64
	}

	c := &SimulationCache{
		shards:   make([]shard, shardCount),
		capacity: perShard,
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[key]entry, perShard)
	}
	return c
}

// Simulate returns the cached simulation for in, computing it on a miss.
// Invalid input is never cached. Frames are copied so callers may not alias
// each other's slices.
func (c *SimulationCache) Simulate(in kinematics.CollisionInput, maxFrames int) (kinematics.Simulation, error) {
	k := key{input: in, maxFrames: maxFrames}
	s := &c.shards[c.shardIndex(k)]

	s.mx.RLock()
	e, ok := s.entries[k]
	s.mx.RUnlock()
	if ok {
		c.hits.Add(1)
		return clone(e.sim), e.err
	}
	c.misses.Add(1)

	sim, err := kinematics.Simulate(in, maxFrames)
	if err != nil && !errors.Is(err, kinematics.ErrNoCollision) {
		return sim, err
	}

	s.mx.Lock()
	if _, exists := s.entries[k]; !exists {
		if len(s.order) >= c.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.entries, oldest)
		}
		s.entries[k] = entry{sim: sim, err: err}
		s.order = append(s.order, k)
	}
	s.mx.Unlock()

	return clone(sim), err
}

// Stats returns hit/miss counters and the current entry count.
func (c *SimulationCache) Stats() Stats {
	n := 0
	for i := range c.shards {
		c.shards[i].mx.RLock()
		n += len(c.shards[i].entries)
		c.shards[i].mx.RUnlock()
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}

func (c *SimulationCache) shardIndex(k key) int {
	return int(hashKey(k) % uint64(len(c.shards)))
}

func hashKey(k key) uint64 {
	var buf [8*3 + 1 + 8]byte
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(k.input.SpeedA))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(k.input.SpeedB))
	binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(k.input.InitialDistance))
	buf[24] = byte(k.input.Scenario)
	binary.LittleEndian.PutUint64(buf[25:], uint64(k.maxFrames))
	return xxhash.Sum64(buf[:])
}

func clone(sim kinematics.Simulation) kinematics.Simulation {
	sim.Frames = slices.Clone(sim.Frames)
	return sim
}
