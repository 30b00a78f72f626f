package runlog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendAndRender(t *testing.T) {
	l := New()
	l.Append(TagInfo, "Starting flow")
	l.Appendf(TagVar, "%s = %v", "X", 5)
	l.Append(TagCriticalError, "boom")

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Seq)
	assert.Equal(t, "X = 5", entries[1].Message)
	assert.Equal(t, "[INFO] Starting flow\n[VAR] X = 5\n[CRITICAL ERROR] boom\n", l.String())
	assert.Equal(t, []Tag{TagInfo, TagVar, TagCriticalError}, l.Tags())
}

func TestLog_AppendIsVerbatim(t *testing.T) {
	l := New()
	msg := "100% done"
	e := l.Append(TagInfo, msg)
	assert.Equal(t, msg, e.Message)

	e = l.Appendf(TagInfo, "%d%% done", 50)
	assert.Equal(t, "50% done", e.Message)
	assert.Equal(t, 2, e.Seq)
}

func TestLog_Subscribe(t *testing.T) {
	l := New()
	ch := l.Subscribe(8)

	var got []Entry
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range ch {
			got = append(got, e)
		}
	}()

	l.Append(TagAction, "send")
	l.Append(TagSuccess, "sent")
	l.Close()
	wg.Wait()

	require.Len(t, got, 2)
	assert.Equal(t, TagSuccess, got[1].Tag)

	late := l.Subscribe(1)
	_, open := <-late
	assert.False(t, open)
	l.Append(TagFinish, "done")
	assert.Equal(t, 3, l.Len())
}
