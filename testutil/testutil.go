package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// NewValidator returns a validator with both the core and the user validators registered.
func NewValidator() *core.Validator {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return core.NewValidator(validate, translator)
}

// LogEntry is one call recorded by Logger.
type LogEntry struct {
	Level   string
	Message string
	Args    []interface{}
}

// Logger records entries instead of reporting them.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) record(lvl, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: lvl, Message: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.record("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.record("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.record("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.record("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.record("FATAL", msg, args) }

// Entries returns the recorded entries of the given level (all when empty).
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Push is one event recorded by Pusher.
type Push struct {
	To      core.Identity
	Event   string
	Payload interface{}
}

// Pusher is a core.Pusher recording every push. Only identities set online receive them.
type Pusher struct {
	mu     sync.Mutex
	online map[core.Identity]bool
	pushes []Push
}

var _ core.Pusher = (*Pusher)(nil)

func NewPusher(online ...core.Identity) *Pusher {
	p := &Pusher{online: make(map[core.Identity]bool)}
	for _, id := range online {
		p.online[id] = true
	}
	return p
}

func (p *Pusher) SetOnline(id core.Identity, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[id] = online
}

func (p *Pusher) Push(to core.Identity, event string, payload interface{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.online[to] {
		return false
	}
	p.pushes = append(p.pushes, Push{To: to, Event: event, Payload: payload})
	return true
}

// Pushes returns the delivered pushes for `event` (all when empty).
func (p *Pusher) Pushes(event string) []Push {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Push, 0, len(p.pushes))
	for _, ps := range p.pushes {
		if event == "" || ps.Event == event {
			out = append(out, ps)
		}
	}
	return out
}
