package repositories

import (
	"testing"

	"relay-lab/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(newTestDB(t))

	id, err := repo.CreateUser("alice@example.com", "alice", "hash")
	req.NoError(err)
	req.NotEmpty(id)

	byEmail, err := repo.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(id, byEmail.ID)
	req.Equal("alice", byEmail.Username)
	req.Equal("hash", byEmail.PasswordHash)
	req.Equal([]string{"user"}, byEmail.Roles)

	byID, err := repo.GetUserByID(id)
	req.NoError(err)
	req.Equal(byEmail, byID)
}

func TestUserRepository_Rejects_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(newTestDB(t))

	_, err := repo.CreateUser("alice@example.com", "alice", "hash")
	req.NoError(err)

	_, err = repo.CreateUser("alice@example.com", "alice2", "hash2")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_GetUserByID_Unknown(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	_, err := repo.GetUserByID("does-not-exist")
	require.ErrorIs(t, err, badger.ErrKeyNotFound)
}
