package msgindex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupcast/groupcast-go/pkg/msgkey"
)

func TestIndexPutGet(t *testing.T) {
	x := New[string]()

	assert.False(t, x.Put("g", "s1", 1, "a"))
	assert.False(t, x.Put("g", "s1", 2, "b"))
	assert.False(t, x.Put("g", "s2", 1, "c"))
	assert.True(t, x.Put("g", "s1", 1, "a2"), "second put replaces")

	v, ok := x.Get("g", "s1", 1)
	require.True(t, ok)
	assert.Equal(t, "a2", v)

	_, ok = x.Get("g", "s1", 3)
	assert.False(t, ok)
	_, ok = x.Get("other", "s1", 1)
	assert.False(t, ok)

	assert.Equal(t, 3, x.Len())
}

func TestIndexKeyAccess(t *testing.T) {
	x := New[int]()
	k := msgkey.New("g", "s", 9)

	x.PutKey(k.WithChunk(1, 0, 10), 5)

	v, ok := x.GetKey(k)
	require.True(t, ok, "chunk fields do not affect the slot")
	assert.Equal(t, 5, v)
}

func TestIndexLatestSeq(t *testing.T) {
	x := New[struct{}]()

	_, ok := x.LatestSeq("g", "s")
	assert.False(t, ok)

	x.Put("g", "s", 5, struct{}{})
	x.Put("g", "s", 3, struct{}{})
	x.Put("g", "s", 8, struct{}{})

	latest, ok := x.LatestSeq("g", "s")
	require.True(t, ok)
	assert.Equal(t, uint64(8), latest)

	x.Delete("g", "s", 8)
	latest, _ = x.LatestSeq("g", "s")
	assert.Equal(t, uint64(8), latest, "delete does not lower the high-water mark")

	x.DeleteSender("g", "s")
	_, ok = x.LatestSeq("g", "s")
	assert.False(t, ok, "removing the sender forgets it")
}

func TestIndexDelete(t *testing.T) {
	x := New[int]()
	x.Put("g1", "a", 1, 1)
	x.Put("g1", "a", 2, 2)
	x.Put("g1", "b", 1, 3)
	x.Put("g2", "a", 1, 4)

	assert.True(t, x.Delete("g1", "a", 1))
	assert.False(t, x.Delete("g1", "a", 1))
	assert.False(t, x.Delete("g9", "a", 1))
	assert.Equal(t, 3, x.Len())

	assert.Equal(t, 1, x.DeleteSender("g1", "a"))
	assert.Equal(t, 0, x.DeleteSender("g1", "a"))
	assert.Equal(t, 2, x.Len())

	assert.Equal(t, 1, x.DeleteGroup("g1"))
	assert.Equal(t, 0, x.DeleteGroup("g1"))
	assert.Equal(t, []string{"g2"}, x.Groups())
	assert.Equal(t, 1, x.Len())
}

func TestIndexRangeOrdered(t *testing.T) {
	x := New[int]()
	x.Put("g", "b", 2, 4)
	x.Put("g", "a", 9, 2)
	x.Put("g", "b", 1, 3)
	x.Put("g", "a", 1, 1)

	var got []int
	x.Range("g", func(_ string, _ uint64, v int) bool {
		got = append(got, v)
		return true
	})
	assert.Equal(t, []int{1, 2, 3, 4}, got)
	assert.Equal(t, []string{"a", "b"}, x.Senders("g"))

	got = got[:0]
	x.Range("g", func(_ string, _ uint64, v int) bool {
		got = append(got, v)
		return len(got) < 2
	})
	assert.Equal(t, []int{1, 2}, got, "range stops when fn returns false")
}

func TestIndexConcurrent(t *testing.T) {
	x := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(sender int) {
			defer wg.Done()
			for seq := uint64(0); seq < 100; seq++ {
				x.Put("g", string(rune('a'+sender)), seq, int(seq))
				x.LatestSeq("g", string(rune('a'+sender)))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 800, x.Len())
}
