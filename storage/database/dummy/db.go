package dummydb

import (
	"sync"

	"github.com/meryambn/mimiScaleUp-sub005/core/message"
	"github.com/meryambn/mimiScaleUp-sub005/core/notification"
	"github.com/meryambn/mimiScaleUp-sub005/core/planning"
	"github.com/meryambn/mimiScaleUp-sub005/core/program"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
)

// DB is an in-memory stand-in for the postgres schema, used by tests and local runs.
// One lock guards all tables so that multi-table operations stay atomic.
type DB struct {
	mu  sync.RWMutex
	seq map[string]int

	users         map[int]*user.User
	programs      map[int]*program.Program
	phases        map[int]*program.Phase
	candidatures  map[int]*program.Candidature
	members       map[int][]int // candidature id -> user ids
	transitions   map[int]*program.Transition
	notifications map[int]*notification.Notification
	messages      map[int]*message.Message
	meetings      map[int]*planning.Meeting
	tasks         map[int]*planning.Task
	deliverables  map[int]*planning.Deliverable
	criteria      map[int]*planning.Criterion
}

func Open() *DB {
	db := &DB{}
	db.reset()
	return db
}

// Reset drops all rows.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.seq = make(map[string]int)
	db.users = make(map[int]*user.User)
	db.programs = make(map[int]*program.Program)
	db.phases = make(map[int]*program.Phase)
	db.candidatures = make(map[int]*program.Candidature)
	db.members = make(map[int][]int)
	db.transitions = make(map[int]*program.Transition)
	db.notifications = make(map[int]*notification.Notification)
	db.messages = make(map[int]*message.Message)
	db.meetings = make(map[int]*planning.Meeting)
	db.tasks = make(map[int]*planning.Task)
	db.deliverables = make(map[int]*planning.Deliverable)
	db.criteria = make(map[int]*planning.Criterion)
}

// nextID emulates a SERIAL column. Callers must hold the write lock.
func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}
