package chat

import "sync"

// UserRegistry maps a username (1-16 ASCII alphanumeric characters) to
// exactly one active Session, case-sensitively and uniquely. It has its
// own lock, independent of RoomRegistry's, and never acquires that lock
// itself (spec.md §5).
type UserRegistry struct {
	mu     sync.Mutex
	byName map[string]*Session
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{byName: make(map[string]*Session)}
}

// InsertIfAbsent registers session under name iff no active session
// already holds that name, and commits name to s.Username under the same
// lock. Returns false on conflict without mutating anything.
func (r *UserRegistry) InsertIfAbsent(name string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return false
	}
	r.byName[name] = s
	s.Username = name
	return true
}

// Remove deletes the mapping for name if it still points at s. No-op
// otherwise, so a session that never registered a name is a cheap no-op.
func (r *UserRegistry) Remove(name string, s *Session) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byName[name]; ok && cur == s {
		delete(r.byName, name)
	}
}

// Lookup returns the live session for name, if any is currently online.
func (r *UserRegistry) Lookup(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byName[name]
	return s, ok
}

// Count returns the number of registered usernames (used for metrics).
func (r *UserRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}

// Whisper delivers a direct message from sender to the session registered
// under target. Returns ErrUserOffline if target is not registered.
func (r *UserRegistry) Whisper(sender *Session, target, msg string) error {
	r.mu.Lock()
	to, ok := r.byName[target]
	r.mu.Unlock()
	if !ok {
		return ErrUserOffline
	}
	to.Enqueue("[WHISPER from " + sender.Username + "]: " + msg + "\n")
	return nil
}
