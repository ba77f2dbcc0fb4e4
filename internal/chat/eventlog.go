package chat

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// EventSink serializes structured domain events to an external
// append-only collaborator (a file, stdout, or any io.Writer). It is a
// leaf lock: no other lock in this package may be held while EventSink's
// mutex is held, and EventSink never acquires any other lock.
type EventSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewEventSink wraps the writer that receives one line per event.
func NewEventSink(out io.Writer) *EventSink {
	return &EventSink{out: out}
}

// Log writes a single "YYYY-MM-DD HH:MM:SS - <TAG> <message>\n" line.
// Two concurrent calls never interleave within a line.
func (s *EventSink) Log(tag, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s - %s %s\n", time.Now().Format("2006-01-02 15:04:05"), tag, msg)

	s.mu.Lock()
	_, _ = io.WriteString(s.out, line)
	s.mu.Unlock()

	EventsTotal.WithLabelValues(tag).Inc()
}

// Event tags, all single-line, per spec.md §4.6.
const (
	TagLogin      = "LOGIN"
	TagRejected   = "REJECTED"
	TagJoin       = "JOIN"
	TagLeave      = "LEAVE"
	TagBroadcast  = "BROADCAST"
	TagWhisper    = "WHISPER"
	TagFileQueue  = "FILE-QUEUE"
	TagSendFile   = "SEND FILE"
	TagDisconnect = "DISCONNECT"
	TagShutdown   = "SHUTDOWN"
	TagError      = "ERROR"
	TagServer     = "SERVER"
)
