package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTrace(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.glog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	return path
}

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.glog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileLoggerBuffersUntilFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.glog")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.Log(Event{Category: CategoryMerge, Group: "g"})
	assert.Equal(t, 1, logger.Written())

	require.NoError(t, logger.Flush())
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	decoded, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "g", decoded.Group)
}

func TestFileLoggerAppends(t *testing.T) {
	path := createTestTrace(t, []Event{{Group: "first"}})

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	logger.Log(Event{Group: "second"})
	require.NoError(t, logger.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	events, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Group)
	assert.Equal(t, "second", events[1].Group)
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "engine.glog"))
	require.NoError(t, err)

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Flush())

	logger.Log(Event{Group: "ignored"})
	assert.Zero(t, logger.Written())
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.glog")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				logger.Log(Event{Timestamp: time.Now(), Category: CategoryMatch})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	events, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Len(t, events, 500)
}

func TestFileLoggerBadPath(t *testing.T) {
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "engine.glog"))
	assert.Error(t, err)
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := createTestTrace(t, []Event{
		{Timestamp: base, Category: CategoryMatch, Group: "a", Match: &MatchEvent{Matched: true}},
		{Timestamp: base.Add(time.Second), Category: CategoryMatch, Group: "a", Match: &MatchEvent{Matched: false}},
		{Timestamp: base.Add(2 * time.Second), Category: CategoryMerge, Group: "b", SubscriptionID: "x"},
		{Timestamp: base.Add(3 * time.Second), Category: CategoryError, Group: "a", Error: &ErrorEventData{Message: "e"}},
	})

	merge := CategoryMerge
	start, end := base.Add(time.Second), base.Add(3*time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"group", Filter{Group: "a"}, 3},
		{"category", Filter{Category: &merge}, 1},
		{"subscription", Filter{SubscriptionID: "x"}, 1},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"matched only", Filter{MatchedOnly: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewFilteredReader(path, tt.filter)
			require.NoError(t, err)
			defer reader.Close()

			events, err := reader.ReadAll()
			require.NoError(t, err)
			assert.Len(t, events, tt.want)
		})
	}
}

func TestReaderEOF(t *testing.T) {
	path := createTestTrace(t, nil)
	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.glog"))
	assert.Error(t, err)
}
