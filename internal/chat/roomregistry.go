package chat

import "sync"

// RoomRegistry maps a room name to its set of members. It has its own
// lock, independent of UserRegistry's; a goroutine holding this lock must
// never acquire UserRegistry's lock (spec.md §5). Broadcast sends happen
// while holding this lock, which is safe only because Session.Enqueue is
// leaf-level and never re-enters a registry.
type RoomRegistry struct {
	mu     sync.Mutex
	byName map[string]*Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{byName: make(map[string]*Room)}
}

// Join moves s into the room named name, leaving any prior room first.
// Rejects an invalid name, a full room cap, or a full member cap.
func (r *RoomRegistry) Join(s *Session, name string) error {
	if !validateRoomName(name) {
		return ErrRoomNameInvalid
	}

	if s.CurrentRoom != "" {
		_ = r.Leave(s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.byName[name]
	if !ok {
		if len(r.byName) >= MaxRooms {
			return ErrRoomUnavailable
		}
		room = &Room{Name: name}
		r.byName[name] = room
	}

	if len(room.Members) >= MaxSessions {
		return ErrRoomFull
	}

	room.Members = append(room.Members, s)
	s.CurrentRoom = name
	return nil
}

// Leave removes s from its current room, deactivating (deleting) the room
// if s was its last member. No-op error if s is not in any room.
func (r *RoomRegistry) Leave(s *Session) error {
	name := s.CurrentRoom
	if name == "" {
		return ErrNotInRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.byName[name]
	if ok {
		for i, m := range room.Members {
			if m == s {
				room.Members = append(room.Members[:i], room.Members[i+1:]...)
				break
			}
		}
		if len(room.Members) == 0 {
			delete(r.byName, name)
		}
	}

	s.CurrentRoom = ""
	return nil
}

// Broadcast fans msg out to every member of sender's current room except
// sender, in member-iteration order. A per-recipient send failure is
// swallowed — the doomed recipient will be reaped by its own worker's I/O
// error, not by the broadcaster.
func (r *RoomRegistry) Broadcast(sender *Session, msg string) error {
	name := sender.CurrentRoom
	if name == "" {
		return ErrNotInRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.byName[name]
	if !ok {
		return ErrNotInRoom
	}

	line := "[" + name + "] " + sender.Username + ": " + msg + "\n"
	for _, m := range room.Members {
		if m == sender {
			continue
		}
		m.Enqueue(line)
	}
	return nil
}

// RoomCount returns the number of active rooms (for metrics).
func (r *RoomRegistry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}

func validateRoomName(name string) bool {
	if len(name) == 0 || len(name) > MaxRoomNameLen {
		return false
	}
	for _, c := range name {
		if !isAlphanumeric(c) {
			return false
		}
	}
	return true
}

func validateUsername(name string) bool {
	if len(name) == 0 || len(name) > MaxUsernameLen {
		return false
	}
	for _, c := range name {
		if !isAlphanumeric(c) {
			return false
		}
	}
	return true
}

func isAlphanumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
