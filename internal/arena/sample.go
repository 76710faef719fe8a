// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package arena

import (
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/google/uuid"

	"buf.build/go/hyperwire/internal/stats"
	"buf.build/go/hyperwire/internal/xsync"
)

// Sampler records statistics about a random subset of arena allocations.
//
// The distance between samples is geometrically distributed with mean
// 1/rate, so the cost of sampling is bounded regardless of allocation
// patterns. A Sampler may be shared by many arenas.
type Sampler struct {
	id   uuid.UUID
	rate float64

	countdown atomic.Int64

	requested, allocated, wasted stats.Mean
	highWater                    stats.Max
	sizes                        *stats.Median
	goroutines                   xsync.Set[uint64]
}

// Report is a snapshot of a [Sampler].
type Report struct {
	ID      uuid.UUID
	Rate    float64
	Samples int64

	MeanRequested float64 // Bytes requested per allocation.
	MeanAllocated float64 // Bytes handed out, after alignment.
	MeanWasted    float64 // Alignment padding.
	MedianSize    float64

	// The largest SpaceAllocated observed at a sample.
	HighWater  int64
	Goroutines int
}

// NewSampler returns a sampler that samples allocations with the given
// probability. A rate of 1 or more samples every allocation.
func NewSampler(rate float64) *Sampler {
	s := &Sampler{
		id:    uuid.New(),
		rate:  rate,
		sizes: stats.NewMedian(1 << 10),
	}
	s.countdown.Store(s.distance())
	return s
}

// ID returns this sampler's unique id.
func (s *Sampler) ID() uuid.UUID { return s.id }

// Report returns the statistics recorded so far. It may be torn if called
// concurrently with allocation.
func (s *Sampler) Report() Report {
	return Report{
		ID:            s.id,
		Rate:          s.rate,
		Samples:       s.requested.Count(),
		MeanRequested: s.requested.Get(),
		MeanAllocated: s.allocated.Get(),
		MeanWasted:    s.wasted.Get(),
		MedianSize:    s.sizes.Get(),
		HighWater:     s.highWater.Get(),
		Goroutines:    s.goroutines.Len(),
	}
}

func (s *Sampler) record(a *Arena, requested, aligned int) {
	if s.rate <= 0 || s.countdown.Add(-1) > 0 {
		return
	}
	s.countdown.Store(s.distance())

	s.requested.Record(float64(requested))
	s.allocated.Record(float64(aligned))
	s.wasted.Record(float64(aligned - requested))
	s.sizes.Record(float64(aligned))
	s.goroutines.Add(goid())
	s.highWater.Record(a.SpaceAllocated())
}

// distance draws the number of allocations until the next sample.
func (s *Sampler) distance() int64 {
	if s.rate >= 1 {
		return 1
	}
	if s.rate <= 0 {
		return math.MaxInt64
	}
	u := 1 - rand.Float64() // In (0, 1], so the log is finite.
	return 1 + int64(math.Log(u)/math.Log1p(-s.rate))
}
