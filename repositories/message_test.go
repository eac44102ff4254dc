package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustMessage(t *testing.T, sender, receiver, text string, at time.Time) domain.Message {
	t.Helper()
	m, err := domain.NewMessage(sender, receiver, text, "")
	require.NoError(t, err)
	m.CreatedAt = at
	return m
}

func TestMessageRepository_Conversation_Is_Ordered(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	// Stored out of order on purpose
	second := mustMessage(t, "alice", "bob", "second", at.Add(1*time.Minute))
	first := mustMessage(t, "bob", "alice", "first", at)
	third := mustMessage(t, "alice", "bob", "third", at.Add(2*time.Minute))
	for _, m := range []domain.Message{second, first, third} {
		req.NoError(repository.Store(m))
	}

	messages, err := repository.Conversation("alice", "bob")
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("first", messages[0].Text)
	req.Equal("second", messages[1].Text)
	req.Equal("third", messages[2].Text)
	for i := 1; i < len(messages); i++ {
		req.False(messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}
}

func TestMessageRepository_Conversation_Marks_Received_As_Seen(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	// Given two messages to bob and one from bob
	req.NoError(repository.Store(mustMessage(t, "alice", "bob", "hi", at)))
	req.NoError(repository.Store(mustMessage(t, "alice", "bob", "you there?", at.Add(time.Second))))
	req.NoError(repository.Store(mustMessage(t, "bob", "alice", "yes", at.Add(2*time.Second))))

	// When bob fetches the conversation
	messages, err := repository.Conversation("bob", "alice")
	req.NoError(err)
	req.Len(messages, 3)

	// Then bob's incoming messages are seen, his own stays untouched
	for _, m := range messages {
		if m.ReceiverID == "bob" {
			req.True(m.Seen)
		} else {
			req.False(m.Seen)
		}
	}

	// And the change is durable, not just in the returned slice
	again, err := repository.Conversation("bob", "alice")
	req.NoError(err)
	req.True(again[0].Seen)

	// And bob's badge for alice is gone
	counts, err := repository.UnseenCounts("bob")
	req.NoError(err)
	req.Empty(counts)

	// While alice still has bob's reply pending
	counts, err = repository.UnseenCounts("alice")
	req.NoError(err)
	req.Equal(map[string]int{"bob": 1}, counts)
}

func TestMessageRepository_UnseenCounts_Groups_By_Sender(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	req.NoError(repository.Store(mustMessage(t, "alice", "charlie", "1", at)))
	req.NoError(repository.Store(mustMessage(t, "alice", "charlie", "2", at.Add(time.Second))))
	req.NoError(repository.Store(mustMessage(t, "bob", "charlie", "3", at.Add(2*time.Second))))

	counts, err := repository.UnseenCounts("charlie")
	req.NoError(err)
	req.Equal(map[string]int{"alice": 2, "bob": 1}, counts)

	// UnseenCounts is a pure read: asking again changes nothing
	counts, err = repository.UnseenCounts("charlie")
	req.NoError(err)
	req.Equal(map[string]int{"alice": 2, "bob": 1}, counts)
}

func TestMessageRepository_Self_Message_Carries_No_Badge(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	req.NoError(repository.Store(mustMessage(t, "alice", "alice", "memo", time.Now().UTC())))

	counts, err := repository.UnseenCounts("alice")
	req.NoError(err)
	req.Empty(counts)
}

func TestMessageRepository_MarkSeen_Single_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	target := mustMessage(t, "alice", "bob", "only this one", at)
	other := mustMessage(t, "alice", "bob", "not this one", at.Add(time.Second))
	req.NoError(repository.Store(target))
	req.NoError(repository.Store(other))

	req.NoError(repository.MarkSeen(target.ID.String()))

	counts, err := repository.UnseenCounts("bob")
	req.NoError(err)
	req.Equal(map[string]int{"alice": 1}, counts)

	// Marking twice is a no-op, never an error
	req.NoError(repository.MarkSeen(target.ID.String()))
}

func TestMessageRepository_MarkSeen_Unknown_ID(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	err := repository.MarkSeen("00000000-0000-0000-0000-000000000000")
	req.ErrorIs(err, apperrors.ErrMessageNotFound)
}

func TestMessageRepository_Conversations_Are_Isolated(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	at := time.Now().UTC()

	req.NoError(repository.Store(mustMessage(t, "alice", "bob", "for bob", at)))
	req.NoError(repository.Store(mustMessage(t, "alice", "charlie", "for charlie", at)))

	messages, err := repository.Conversation("bob", "alice")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("for bob", messages[0].Text)
}
