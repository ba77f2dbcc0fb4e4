package chat

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

const commandSummary = "Commands: /join <room>, /leave, /broadcast <msg>, /whisper <user> <msg>, /sendfile <file> <user>, /exit\n"

// HandleSession drives one connection through Naming -> Active ->
// Terminated. It runs entirely on its own goroutine; ctx supplies the
// shared collaborators (registries, upload queue, event sink) it
// dispatches into.
func HandleSession(s *Session, ctx *ServerContext) {
	go s.RunWriter()

	defer func() {
		terminate(s, ctx)
		s.CloseOutbound()
		_ = s.Conn.Close()
	}()

	reader := bufio.NewReader(s.Conn)

	if !runNaming(s, ctx, reader) {
		return
	}

	runActive(s, ctx, reader)
}

// runNaming repeats the prompt/validate/register cycle until a unique
// username is committed or the peer disconnects. Returns false if the
// peer closed the stream before registering.
func runNaming(s *Session, ctx *ServerContext, reader *bufio.Reader) bool {
	for {
		if err := s.WriteLine("Enter username (max 16 chars, alphanumeric): "); err != nil {
			return false
		}

		line, err := readLine(reader)
		if err != nil {
			return false
		}

		if !validateUsername(line) {
			_ = s.WriteLine("[ERROR] Invalid username. Use alphanumeric characters only.\n")
			continue
		}

		if !ctx.Users.InsertIfAbsent(line, s) {
			_ = s.WriteLine("[ERROR] Username already taken. Choose another.\n")
			ctx.Log.Log(TagRejected, "Duplicate username attempted: %s", line)
			continue
		}

		// InsertIfAbsent wrote the username exactly once, under the user
		// registry lock, before this session can ever be joined into a
		// room — see DESIGN.md open question (a).

		ctx.Log.Log(TagLogin, "user '%s' connected from %s", s.Username, s.Addr)
		ActiveSessions.Set(float64(ctx.Users.Count()))

		_ = s.WriteLine("[SUCCESS] Connected to chat server!\n")
		_ = s.WriteLine(commandSummary)
		return true
	}
}

// runActive reads and dispatches one command per line until /exit, a
// peer I/O error, or server shutdown.
func runActive(s *Session, ctx *ServerContext, reader *bufio.Reader) {
	for {
		line, err := readLine(reader)
		if err != nil {
			return
		}
		if line == "" {
			continue
		}

		start := time.Now()
		cmd := dispatch(s, ctx, line)
		CommandDuration.WithLabelValues(cmd).Observe(time.Since(start).Seconds())

		if cmd == "exit" {
			return
		}
	}
}

// dispatch parses one command line and executes it, returning a short
// label for metrics.
func dispatch(s *Session, ctx *ServerContext, line string) string {
	switch {
	case line == "/leave":
		handleLeave(s, ctx)
		return "leave"
	case line == "/exit":
		_ = s.WriteLine("[INFO] Goodbye!\n")
		return "exit"
	case strings.HasPrefix(line, "/join "):
		handleJoin(s, ctx, strings.TrimSpace(strings.TrimPrefix(line, "/join ")))
		return "join"
	case strings.HasPrefix(line, "/broadcast "):
		handleBroadcast(s, ctx, strings.TrimPrefix(line, "/broadcast "))
		return "broadcast"
	case strings.HasPrefix(line, "/whisper "):
		handleWhisper(s, ctx, strings.TrimPrefix(line, "/whisper "))
		return "whisper"
	case strings.HasPrefix(line, "/sendfile "):
		handleSendFile(s, ctx, strings.TrimPrefix(line, "/sendfile "))
		return "sendfile"
	default:
		_ = s.WriteLine("[ERROR] Unknown command. Type a valid command.\n")
		return "unknown"
	}
}

func handleJoin(s *Session, ctx *ServerContext, roomName string) {
	if roomName == "" {
		_ = s.WriteLine("[ERROR] Invalid room name. Use alphanumeric characters only.\n")
		return
	}

	switch err := ctx.Rooms.Join(s, roomName); err {
	case nil:
		_ = s.WriteLine("[SUCCESS] Joined room '" + roomName + "'\n")
		ctx.Log.Log(TagJoin, "user '%s' joined room '%s'", s.Username, roomName)
		ActiveRooms.Set(float64(ctx.Rooms.RoomCount()))
	case ErrRoomNameInvalid:
		_ = s.WriteLine("[ERROR] Invalid room name. Use alphanumeric characters only.\n")
	case ErrRoomFull:
		_ = s.WriteLine("[ERROR] Room is full.\n")
	default: // ErrRoomUnavailable and anything else
		_ = s.WriteLine("[ERROR] Unable to join room.\n")
	}
}

func handleLeave(s *Session, ctx *ServerContext) {
	room := s.CurrentRoom
	if err := ctx.Rooms.Leave(s); err != nil {
		_ = s.WriteLine("[ERROR] You are not in any room.\n")
		return
	}
	_ = s.WriteLine("[SUCCESS] Left room '" + room + "'\n")
	ctx.Log.Log(TagLeave, "user '%s' left room '%s'", s.Username, room)
	ActiveRooms.Set(float64(ctx.Rooms.RoomCount()))
}

func handleBroadcast(s *Session, ctx *ServerContext, msg string) {
	if err := ctx.Rooms.Broadcast(s, msg); err != nil {
		_ = s.WriteLine("[ERROR] Join a room first.\n")
		return
	}
	_ = s.WriteLine("[SUCCESS] Message broadcasted.\n")
	ctx.Log.Log(TagBroadcast, "user '%s': %s", s.Username, msg)
}

func handleWhisper(s *Session, ctx *ServerContext, rest string) {
	target, msg, ok := splitFirstToken(rest)
	if !ok || msg == "" {
		_ = s.WriteLine("[ERROR] Usage: /whisper <username> <message>\n")
		return
	}

	if err := ctx.Users.Whisper(s, target, msg); err != nil {
		_ = s.WriteLine("[ERROR] User not found or offline.\n")
		return
	}
	_ = s.WriteLine("[SUCCESS] Whisper sent.\n")
	ctx.Log.Log(TagWhisper, "%s to %s: %s", s.Username, target, msg)
}

func handleSendFile(s *Session, ctx *ServerContext, rest string) {
	filename, target, ok := splitFirstToken(rest)
	if !ok {
		_ = s.WriteLine("[ERROR] Usage: /sendfile <filename> <username>\n")
		return
	}
	if fields := strings.Fields(target); len(fields) > 0 {
		target = fields[0]
	}

	if !validateFilename(filename) {
		_ = s.WriteLine("[ERROR] Invalid file type. Allowed: .txt, .pdf, .jpg, .png\n")
		return
	}

	if _, ok := ctx.Users.Lookup(target); !ok {
		_ = s.WriteLine("[ERROR] Target user not found or offline.\n")
		return
	}

	size, err := ctx.Stat(filename)
	if err != nil {
		_ = s.WriteLine("[ERROR] Unable to access file.\n")
		ctx.Log.Log(TagError, "stat failed for '%s' from user '%s': %v", filename, s.Username, err)
		return
	}
	if size > MaxFileSize {
		_ = s.WriteLine("[ERROR] File exceeds size limit (3MB).\n")
		ctx.Log.Log(TagError, "File '%s' from user '%s' exceeds size limit", filename, s.Username)
		return
	}

	tr := FileTransfer{
		Filename:    filename,
		Sender:      s.Username,
		Receiver:    target,
		PayloadSize: size,
		EnqueuedAt:  time.Now(),
	}

	if ctx.Queue.TryEnqueue(tr) {
		_ = s.WriteLine("[SUCCESS] File added to upload queue.\n")
		ctx.Log.Log(TagFileQueue, "Upload '%s' from %s added to queue. Queue size: %d", filename, s.Username, ctx.Queue.Depth())
		UploadQueueDepth.Set(float64(ctx.Queue.Depth()))
		return
	}

	_ = s.WriteLine("[INFO] Upload queue full. Waiting...\n")
	if !ctx.Queue.EnqueueBlocking(tr) {
		// Server shut down while this session waited for a slot.
		_ = s.WriteLine("[ERROR] Server is shutting down.\n")
		return
	}
	_ = s.WriteLine("[SUCCESS] File queued for upload.\n")
	ctx.Log.Log(TagFileQueue, "Upload '%s' from %s added to queue after wait. Queue size: %d", filename, s.Username, ctx.Queue.Depth())
	UploadQueueDepth.Set(float64(ctx.Queue.Depth()))
}

// terminate runs teardown exactly once: leave any room, remove from the
// user registry, and log DISCONNECT if a username was ever registered.
// Removal from every registry must complete before the caller closes the
// connection, so no other goroutine can dispatch to a closed handle.
func terminate(s *Session, ctx *ServerContext) {
	s.SetActive(false)

	if s.CurrentRoom != "" {
		_ = ctx.Rooms.Leave(s)
		ActiveRooms.Set(float64(ctx.Rooms.RoomCount()))
	}

	if s.Username != "" {
		ctx.Users.Remove(s.Username, s)
		ActiveSessions.Set(float64(ctx.Users.Count()))
		ctx.Log.Log(TagDisconnect, "user '%s' lost connection. Cleaned up resources.", s.Username)
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}

// splitFirstToken splits "token rest..." on the first space, per the
// wire grammar's space-delimited command arguments.
func splitFirstToken(s string) (first, rest string, ok bool) {
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func validateFilename(name string) bool {
	if len(name) == 0 || len(name) > MaxFilenameLen {
		return false
	}
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	return allowedExtensions[name[i:]]
}
