package chat

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestEventSink_FormatsTagAndMessage(t *testing.T) {
	var buf bytes.Buffer
	s := NewEventSink(&buf)

	s.Log(TagJoin, "user '%s' joined room '%s'", "alice", "room1")

	line := buf.String()
	if !strings.Contains(line, " - JOIN user 'alice' joined room 'room1'\n") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestEventSink_ConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	s := NewEventSink(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Log(TagBroadcast, "message number %d", n)
		}(i)
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if !strings.Contains(line, " - BROADCAST message number ") {
			t.Fatalf("interleaved or malformed line: %q", line)
		}
	}
}
