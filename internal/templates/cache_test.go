package templates

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheComputesOnce(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32
	release := make(chan struct{})

	produce := func() ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("content"), nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get("eslintrc", produce)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "content", string(r))
	}

	// A later hit never calls the producer.
	v, err := c.Get("eslintrc", func() ([]byte, error) {
		t.Fatal("producer called on a populated key")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "content", string(v))
	assert.Equal(t, 1, c.Len())
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	c := NewCache()
	boom := errors.New("boom")

	_, err := c.Get("k", func() ([]byte, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.Get("k", func() ([]byte, error) { return []byte("ok"), nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", string(v))
}

func TestCacheKeysAreIndependent(t *testing.T) {
	c := NewCache()
	a, _ := c.Get("a", func() ([]byte, error) { return []byte("A"), nil })
	b, _ := c.Get("b", func() ([]byte, error) { return []byte("B"), nil })
	assert.Equal(t, "A", string(a))
	assert.Equal(t, "B", string(b))
	assert.Equal(t, 2, c.Len())
}
