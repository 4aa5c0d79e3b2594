package logbuffer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBufferKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	buf := New(3)
	require.Equal(t, 3, buf.Capacity())
	require.Empty(t, buf.Entries())

	buf.Append(Entry{Message: "a"})
	buf.Append(Entry{Message: "b"})

	got := buf.Entries()
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Message)
	require.Equal(t, "b", got[1].Message)
}

func TestBufferEvictsOldestPastCapacity(t *testing.T) {
	t.Parallel()

	buf := New(DefaultCapacity)
	for i := 1; i <= DefaultCapacity+1; i++ {
		buf.Append(Entry{Message: fmt.Sprintf("entry-%d", i)})
	}

	got := buf.Entries()
	require.Len(t, got, DefaultCapacity)
	require.Equal(t, "entry-2", got[0].Message)
	require.Equal(t, fmt.Sprintf("entry-%d", DefaultCapacity+1), got[len(got)-1].Message)
}

func TestBufferNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	buf := New(5)
	for i := 0; i < 23; i++ {
		buf.Append(Entry{Message: fmt.Sprint(i)})
		require.LessOrEqual(t, buf.Len(), 5)
	}
	got := buf.Entries()
	require.Equal(t, []string{"18", "19", "20", "21", "22"}, messages(got))
}

func TestBufferDefaultCapacity(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultCapacity, New(0).Capacity())
}

func TestBufferSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	buf := New(2)
	buf.Append(Entry{Message: "first"})
	snap := buf.Entries()
	snap[0].Message = "mutated"

	require.Equal(t, "first", buf.Entries()[0].Message)
}

func TestBufferConcurrentAppendAndRead(t *testing.T) {
	t.Parallel()

	buf := New(50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				buf.Append(Entry{Message: fmt.Sprintf("%d-%d", worker, i)})
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			require.LessOrEqual(t, len(buf.Entries()), 50)
		}
	}()
	wg.Wait()

	require.Equal(t, 50, buf.Len())
}

func TestEntryLine(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.FixedZone("EST", -5*3600))
	entry := Entry{Timestamp: ts, Message: "Initial hash recorded."}
	require.Equal(t, "[March 05, 2024 at 19:07 GMT] Initial hash recorded.", entry.Line())
}

func messages(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}
