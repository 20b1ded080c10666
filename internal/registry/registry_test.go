package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	table := New("default")
	table.Register("fast", "lite", "title")
	table.Register("deep", "reasoning")

	assert.Equal(t, "fast", table.Lookup("lite"))
	assert.Equal(t, "fast", table.Lookup("title"))
	assert.Equal(t, "deep", table.Lookup("reasoning"))
	assert.Equal(t, "default", table.Lookup("unknown"))
	assert.Equal(t, "default", table.Lookup(""))
	assert.Equal(t, "default", table.Fallback())

	assert.True(t, table.Has("title"))
	assert.False(t, table.Has("unknown"))
	assert.Equal(t, []string{"lite", "reasoning", "title"}, table.Names())

	table.Register("faster", "lite")
	assert.Equal(t, "faster", table.Lookup("lite"))
}

func TestTable_ConcurrentLookup(t *testing.T) {
	table := New(0)
	table.Register(1, "one")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, 1, table.Lookup("one"))
			assert.Equal(t, 0, table.Lookup("two"))
		}()
	}
	wg.Wait()
}
