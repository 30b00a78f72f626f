// Package runlog is the append-only, tagged execution log of a flow run.
package runlog

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Tag classifies a log entry.
type Tag string

const (
	TagInfo          Tag = "INFO"
	TagWarn          Tag = "WARN"
	TagError         Tag = "ERROR"
	TagSuccess       Tag = "SUCCESS"
	TagConfig        Tag = "CONFIG"
	TagMix           Tag = "MIX"
	TagGen           Tag = "GEN"
	TagVar           Tag = "VAR"
	TagMath          Tag = "MATH"
	TagAction        Tag = "ACTION"
	TagBackup        Tag = "BACKUP"
	TagFinish        Tag = "FINISH"
	TagCriticalError Tag = "CRITICAL ERROR"
)

// Entry is one log line.
type Entry struct {
	Seq     int       `json:"seq"`
	Time    time.Time `json:"time"`
	Tag     Tag       `json:"tag"`
	Message string    `json:"message"`
}

// String renders the entry as "[TAG] message".
func (e Entry) String() string {
	return "[" + string(e.Tag) + "] " + e.Message
}

// Log collects entries for one run. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	subs    []chan Entry
	closed  bool
	now     func() time.Time
}

// New returns an empty log.
func New() *Log {
	return &Log{now: time.Now}
}

// Append adds msg verbatim and publishes it to subscribers.
func (l *Log) Append(tag Tag, msg string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{Seq: len(l.entries) + 1, Time: l.now(), Tag: tag, Message: msg}
	l.entries = append(l.entries, e)
	for _, ch := range l.subs {
		// live display is best effort; Entries stays authoritative
		select {
		case ch <- e:
		default:
		}
	}
	return e
}

// Appendf formats the message with fmt.Sprintf and appends it.
func (l *Log) Appendf(tag Tag, format string, args ...interface{}) Entry {
	return l.Append(tag, fmt.Sprintf(format, args...))
}

// Entries returns a copy of all entries in append order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Tags returns the tag of every entry in order.
func (l *Log) Tags() []Tag {
	l.mu.Lock()
	defer l.mu.Unlock()
	tags := make([]Tag, len(l.entries))
	for i, e := range l.entries {
		tags[i] = e.Tag
	}
	return tags
}

// String renders the log one entry per line.
func (l *Log) String() string {
	var b strings.Builder
	for _, e := range l.Entries() {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Subscribe returns a channel receiving entries appended from now on.
// The channel is closed by Close.
func (l *Log) Subscribe(buffer int) <-chan Entry {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Entry, buffer)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		close(ch)
		return ch
	}
	l.subs = append(l.subs, ch)
	return ch
}

// Close ends all subscriptions. Appends after Close are still recorded.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for _, ch := range l.subs {
		close(ch)
	}
	l.subs = nil
}
