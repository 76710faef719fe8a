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

// Package stats provides lock-free counters for sampled statistics.
package stats

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
)

// Mean tracks an average. The zero value is ready to use.
//
// Record may be called concurrently. A concurrent Get may observe a sample
// that is counted but not yet summed.
type Mean struct {
	sum   float
	count atomic.Int64
}

// Record records a sample.
func (m *Mean) Record(sample float64) {
	m.sum.add(sample)
	m.count.Add(1)
}

// Count returns the number of samples recorded.
func (m *Mean) Count() int64 {
	return m.count.Load()
}

// Get returns the mean of the recorded samples, or zero if there are none.
func (m *Mean) Get() float64 {
	n := m.count.Load()
	if n == 0 {
		return 0
	}
	return m.sum.load() / float64(n)
}

// Max tracks the largest value seen. The zero value is ready to use.
type Max struct {
	v atomic.Int64
}

// Record records a sample.
func (m *Max) Record(sample int64) {
	for {
		old := m.v.Load()
		if sample <= old || m.v.CompareAndSwap(old, sample) {
			return
		}
	}
}

// Get returns the largest sample recorded, or zero.
func (m *Max) Get() int64 {
	return m.v.Load()
}

// Median estimates a median from a uniform reservoir of samples.
//
// Must be constructed with [NewMedian]. All methods may be called
// concurrently.
type Median struct {
	mu        sync.Mutex
	reservoir []float64
	seen      int64
}

// NewMedian returns a median estimator that keeps at most n samples.
func NewMedian(n int) *Median {
	return &Median{reservoir: make([]float64, 0, n)}
}

// Record records a sample.
func (m *Median) Record(sample float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seen++
	if len(m.reservoir) < cap(m.reservoir) {
		m.reservoir = append(m.reservoir, sample)
		return
	}
	if i := rand.Int64N(m.seen); i < int64(len(m.reservoir)) {
		m.reservoir[i] = sample
	}
}

// Get returns the median of the retained samples, or zero if there are none.
func (m *Median) Get() float64 {
	m.mu.Lock()
	samples := slices.Clone(m.reservoir)
	m.mu.Unlock()

	if len(samples) == 0 {
		return 0
	}
	slices.Sort(samples)
	mid := len(samples) / 2
	if len(samples)%2 == 0 {
		return (samples[mid-1] + samples[mid]) / 2
	}
	return samples[mid]
}

// float is an atomic float64 accumulator.
type float struct {
	bits atomic.Uint64
}

func (f *float) load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *float) add(delta float64) {
	for {
		old := f.bits.Load()
		sum := math.Float64bits(math.Float64frombits(old) + delta)
		if f.bits.CompareAndSwap(old, sum) {
			return
		}
	}
}
