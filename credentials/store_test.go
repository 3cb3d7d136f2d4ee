package credentials

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flowgrid-io/flowgrid/store"
)

func newTestCredStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	backing := store.NewStore(db, nil)
	require.NoError(t, backing.AutoMigrate())
	require.NoError(t, db.Create(&store.Organization{ID: "org-1", Name: "one"}).Error)
	require.NoError(t, db.Create(&store.Organization{ID: "org-2", Name: "two"}).Error)

	vault, err := NewVault(testKey)
	require.NoError(t, err)
	return NewStore(backing, vault, nil)
}

func TestSecretRoundTrip(t *testing.T) {
	s := newTestCredStore(t)
	ctx := context.Background()

	cred := &store.Credential{ID: uuid.NewString(), OrgID: "org-1", Kind: "OPENAI", Name: "key"}
	require.NoError(t, s.Save(ctx, cred, "sk-secret"))
	assert.NotContains(t, cred.EncryptedValue, "sk-secret")

	plaintext, err := s.Secret(ctx, "org-1", cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", plaintext)
}

func TestSecretCrossTenantIsAbsent(t *testing.T) {
	s := newTestCredStore(t)
	ctx := context.Background()

	cred := &store.Credential{ID: uuid.NewString(), OrgID: "org-1", Kind: "GEMINI", Name: "key"}
	require.NoError(t, s.Save(ctx, cred, "g-secret"))

	_, err := s.Secret(ctx, "org-2", cred.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSecretUndecryptableIsAbsent(t *testing.T) {
	s := newTestCredStore(t)
	ctx := context.Background()

	cred := &store.Credential{
		ID: uuid.NewString(), OrgID: "org-1", Kind: "ANTHROPIC", Name: "key",
		EncryptedValue: "garbage",
	}
	require.NoError(t, s.backing.DB().Create(cred).Error)

	_, err := s.Secret(ctx, "org-1", cred.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
