package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true

	var counter int64
	n := 10000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_EachIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	seen := make([]int32, 1000)
	For(len(seen), func(i int) {
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	for i, c := range seen {
		assert.Equal(t, int32(1), c, "index %d", i)
	}
}

func TestFor_Sequential(t *testing.T) {
	var counter int64
	For(100, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, Config{NumWorkers: 1})

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestTasks(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3}

	var mu sync.Mutex
	done := map[int]int{}
	Tasks(17, func(i int) {
		mu.Lock()
		done[i]++
		mu.Unlock()
	}, cfg)

	assert.Len(t, done, 17)
	for i, c := range done {
		assert.Equal(t, 1, c, "task %d", i)
	}
}

func TestTasks_BoundedWorkers(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 2}

	var running, peak int32
	Tasks(20, func(_ int) {
		r := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if r <= p || atomic.CompareAndSwapInt32(&peak, p, r) {
				break
			}
		}
		atomic.AddInt32(&running, -1)
	}, cfg)

	assert.LessOrEqual(t, peak, int32(2))
}

func TestTasks_ZeroAndSequential(t *testing.T) {
	called := false
	Tasks(0, func(_ int) { called = true }, DefaultConfig())
	assert.False(t, called)

	var order []int
	Tasks(4, func(i int) { order = append(order, i) }, Config{NumWorkers: 1})
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func BenchmarkTasks(b *testing.B) {
	cfg := DefaultConfig()
	data := make([][]float32, 64)
	for i := range data {
		data[i] = make([]float32, 4096)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Tasks(len(data), func(k int) {
			for j := range data[k] {
				data[k][j] += 1
			}
		}, cfg)
	}
}
