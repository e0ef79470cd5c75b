package idgen

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixed struct{ next int }

func (f *fixed) NextID() (string, error) {
	f.next++
	return strconv.Itoa(f.next), nil
}

func TestSonyflakeUnique(t *testing.T) {
	gen, err := NewSonyflake(7)
	require.NoError(t, err)

	const n = 200
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := gen.NextID()
			assert.NoError(t, err)
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)

	id, err := gen.NextID()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(id), 20)
}

func TestProcessGenerator(t *testing.T) {
	t.Cleanup(func() { current.Store(nil) })

	id, err := NextID()
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	Use(&fixed{})
	id, err = NextID()
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	require.NoError(t, Init(3))
	id, err = NextID()
	require.NoError(t, err)
	assert.NotEqual(t, "2", id)
}
