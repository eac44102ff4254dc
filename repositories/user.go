//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
)

const (
	userPrefix   = "user:"
	userIDPrefix = "userid:"
)

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

// diskUser is the stored representation of a domain.User.
type diskUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"password_hash"`
	Bio          string    `json:"bio,omitempty"`
	ProfilePic   string    `json:"profile_pic,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(email string) []byte { return append([]byte(userPrefix), email...) }

func userIDKey(id string) []byte { return append([]byte(userIDPrefix), id...) }

// CreateUser persists a new account. The record lives under its email key
// and a secondary "userid:{id}" entry points back to the email, so both
// login (by email) and token introspection (by ID) stay O(1).
func (u UserRepository) CreateUser(user domain.User) error {
	data, err := json.Marshal(fromDomainUser(user))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(user.Email)); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey(user.Email), data); err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), []byte(user.Email))
	})
}

func (u UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var du diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		return readUser(txn, userKey(email), &du)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(du), nil
}

func (u UserRepository) GetUserByID(id string) (domain.User, error) {
	var du diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		email, err := resolveEmail(txn, id)
		if err != nil {
			return err
		}
		return readUser(txn, userKey(email), &du)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(du), nil
}

// UpdateUser rewrites an existing account record in place. The email is
// immutable; only profile fields change after creation.
func (u UserRepository) UpdateUser(user domain.User) error {
	data, err := json.Marshal(fromDomainUser(user))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(user.Email)); err != nil {
			if err == badger.ErrKeyNotFound {
				return apperrors.ErrUserNotFound
			}
			return err
		}
		return txn.Set(userKey(user.Email), data)
	})
}

// ListUsersExcept returns every account except the given one, for the
// sidebar. A full prefix scan is fine at this scale; the record count is
// the user base, not the message log.
func (u UserRepository) ListUsersExcept(id string) ([]domain.User, error) {
	var users []diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var du diskUser
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &du)
			}); err != nil {
				return err
			}
			if du.ID == id {
				continue
			}
			users = append(users, du)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(du diskUser, _ int) domain.User {
		return toDomainUser(du)
	}), nil
}

func resolveEmail(txn *badger.Txn, id string) (string, error) {
	item, err := txn.Get(userIDKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return "", apperrors.ErrUserNotFound
		}
		return "", err
	}
	email, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(email), nil
}

func readUser(txn *badger.Txn, key []byte, du *diskUser) error {
	item, err := txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return apperrors.ErrUserNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, du)
	})
}

func fromDomainUser(user domain.User) diskUser {
	return diskUser{
		ID:           user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		PasswordHash: user.PasswordHash,
		Bio:          user.Bio,
		ProfilePic:   user.ProfilePic,
		CreatedAt:    user.CreatedAt.UTC(),
	}
}

func toDomainUser(du diskUser) domain.User {
	return domain.User{
		ID:           du.ID,
		Email:        du.Email,
		FullName:     du.FullName,
		PasswordHash: du.PasswordHash,
		Bio:          du.Bio,
		ProfilePic:   du.ProfilePic,
		CreatedAt:    du.CreatedAt.UTC(),
	}
}
