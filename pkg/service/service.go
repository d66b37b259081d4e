package service

import (
	"sync"

	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/storage"
)

// Logger defines the logging interface for TaskflowService
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// TaskflowService is the task-dependency workflow engine. It manages
// prerequisite relationships between requirement templates, instantiates
// event-scoped tasks with dependency-aware initial status, records the
// dependency edges as workflow links, cascades activation as upstream tasks
// complete, and gates task deletion.
//
// The service is stateless apart from its per-event creation locks; all
// state lives behind the injected Store, so tests substitute the in-memory
// mock.
type TaskflowService struct {
	store  storage.Store
	logger Logger

	mu         sync.Mutex
	eventLocks map[int64]*sync.Mutex
}

func NewTaskflowService(store storage.Store, logger Logger) *TaskflowService {
	return &TaskflowService{
		store:      store,
		logger:     logger,
		eventLocks: make(map[int64]*sync.Mutex),
	}
}

// lockEvent serializes task and workflow creation within one event, so
// concurrent sibling-department processing cannot race the find-or-create
// workflow step into duplicate workflows.
func (s *TaskflowService) lockEvent(eventID int64) func() {
	s.mu.Lock()
	l, ok := s.eventLocks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.eventLocks[eventID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}
