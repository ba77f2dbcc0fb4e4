package chat

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Compile-time constants of the contract: exceeding any of these is a
// first-class rejection path, never undefined behavior.
const (
	MaxSessions    = 15
	MaxRooms       = 10
	MaxUsernameLen = 16
	MaxRoomNameLen = 32
	MaxFilenameLen = 255
	MaxFileSize    = 3 * 1024 * 1024 // 3 MiB
	UploadQueueCap = 5

	outboundBuffer = 32 // per-session async send buffer
)

var allowedExtensions = map[string]bool{
	".txt": true,
	".pdf": true,
	".jpg": true,
	".png": true,
}

type errorString string

func (e errorString) Error() string { return string(e) }

var (
	ErrUsernameTaken   = errorString("username_taken")
	ErrUsernameInvalid = errorString("username_invalid")

	ErrRoomNameInvalid = errorString("room_name_invalid")
	ErrRoomUnavailable = errorString("room_unavailable")
	ErrRoomFull        = errorString("room_full")
	ErrNotInRoom       = errorString("not_in_room")

	ErrUserOffline = errorString("user_offline")
)

// Session represents one connected client. Username and CurrentRoom are
// mutated only by the owning HandleSession goroutine and read by the
// registries while they hold their own lock on an entry that was inserted
// under that same lock — see DESIGN.md open question (a) for why that is
// sound without an additional per-field lock.
type Session struct {
	ID   uuid.UUID
	Conn net.Conn
	Addr string

	Username    string
	CurrentRoom string

	active atomic.Bool

	writeMu sync.Mutex  // serializes all writes onto Conn
	out     chan string // async best-effort outbound lines (never blocks senders)

	// done signals RunWriter to stop draining out. out itself is never
	// closed: Enqueue's send-with-default stays safe to call from any
	// goroutine for the lifetime of the Session value, even after the
	// writer has stopped and even racing CloseOutbound (see writer.go).
	done chan struct{}
}

// NewSession wraps an accepted connection. The caller is responsible for
// starting the writer goroutine via Session.RunWriter.
func NewSession(conn net.Conn) *Session {
	s := &Session{
		ID:   uuid.New(),
		Conn: conn,
		Addr: conn.RemoteAddr().String(),
		out:  make(chan string, outboundBuffer),
		done: make(chan struct{}),
	}
	s.active.Store(true)
	return s
}

func (s *Session) Active() bool { return s.active.Load() }

func (s *Session) SetActive(v bool) { s.active.Store(v) }

// Room is a named multicast group of sessions with best-effort fan-out.
// Members preserves join order; removal splices rather than swap-deletes
// so that remaining members keep their relative order (spec.md §3(b-d)).
type Room struct {
	Name    string
	Members []*Session
}

// FileTransfer is one pending payload notification. PayloadSize is the
// declared size in bytes; payload bytes themselves are treated as opaque
// and are never held by the engine (spec.md §1 non-goals).
type FileTransfer struct {
	Filename    string
	Sender      string
	Receiver    string
	PayloadSize int64
	EnqueuedAt  time.Time
}
