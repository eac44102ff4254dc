//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// EventSink is one client's inbound event channel. Consume must never
// block the caller: a full or dead sink drops the event.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the process-wide presence map. At most one sink per user;
// a new connection for the same user overwrites the previous one.
type IRegistry interface {
	Register(userID string, sink EventSink)
	Deregister(userID string, sink EventSink)
	Lookup(userID string) (EventSink, bool)
	Snapshot() []string
	Sinks() []EventSink
}

type IMessageRepository interface {
	Store(message domain.Message) error
	Conversation(userID, otherID string) ([]domain.Message, error)
	UnseenCounts(userID string) (map[string]int, error)
	MarkSeen(messageID string) error
}

type IUserRepository interface {
	CreateUser(user domain.User) error
	GetUserByEmail(email string) (domain.User, error)
	GetUserByID(id string) (domain.User, error)
	UpdateUser(user domain.User) error
	ListUsersExcept(id string) ([]domain.User, error)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself. Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
