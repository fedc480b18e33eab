// Package random is a lock-free source of uniform floats for spreading out
// background work, such as the first sweep after startup. It shards SplitMix64
// state across goroutine-count buckets so hot callers do not contend on one
// CAS word.
package random

import (
	"runtime"
	"sync/atomic"
	"time"
)

const golden = 0x9e3779b97f4a7c15

type shard struct {
	state uint64 // SplitMix64 state, advanced via CAS
}

var (
	_shards []shard
	_mask   uint32
	_rr     uint32 // round-robin shard pick
)

// Init reconfigures the shard count; n <= 0 picks GOMAXPROCS*4. The count is
// rounded up to a power of two for a cheap mask.
func Init(n int) {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0) * 4
		if n < 1 {
			n = 1
		}
	}
	p := 1
	for p < n {
		p <<= 1
	}

	_shards = make([]shard, p)
	_mask = uint32(p - 1)

	seed := mix(uint64(time.Now().UnixNano()) + golden)
	for i := range _shards {
		seed += golden
		_shards[i].state = mix(seed)
		if _shards[i].state == 0 {
			_shards[i].state = golden
		}
	}
	atomic.StoreUint32(&_rr, 0)
}

// Float64 returns a uniform value in [0,1) built from 53 random bits.
func Float64() float64 {
	i := atomic.AddUint32(&_rr, 1) & _mask
	x := next(&_shards[i].state)
	const inv53 = 1.0 / (1 << 53)
	return float64(x>>11) * inv53
}

// next advances the shard state by the golden-ratio increment and returns
// the mixed output. Losing the CAS race just retries with the newer state.
func next(s *uint64) uint64 {
	for {
		old := atomic.LoadUint64(s)
		x := old + golden
		if atomic.CompareAndSwapUint64(s, old, x) {
			return mix(x)
		}
	}
}

// mix is the SplitMix64 finalizer.
func mix(z uint64) uint64 {
	z ^= z >> 30
	z *= 0xbf58476d1ce4e5b9
	z ^= z >> 27
	z *= 0x94d049bb133111eb
	z ^= z >> 31
	return z
}

func init() { Init(0) }
