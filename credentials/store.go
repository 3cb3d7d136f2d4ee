package credentials

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/store"
)

// Store returns decrypted secrets by opaque credential identifier, scoped to
// an organization. Decryption failures are reported as absence so no brittle
// error text reaches clients.
type Store struct {
	backing *store.Store
	vault   *Vault
	logger  *zap.Logger
}

// NewStore creates a credential store over the relational store and vault.
func NewStore(backing *store.Store, vault *Vault, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backing: backing,
		vault:   vault,
		logger:  logger.With(zap.String("component", "credentials")),
	}
}

// Secret returns the decrypted credential value. A credential belonging to
// another organization, a missing credential, and an undecryptable one all
// return store.ErrNotFound.
func (s *Store) Secret(ctx context.Context, orgID, credentialID string) (string, error) {
	cred, err := s.backing.GetCredential(ctx, orgID, credentialID)
	if err != nil {
		return "", err
	}

	plaintext, err := s.vault.Decrypt(cred.EncryptedValue)
	if err != nil {
		s.logger.Warn("credential decryption failed, treating as absent",
			zap.String("credential_id", credentialID),
		)
		return "", store.ErrNotFound
	}
	return plaintext, nil
}

// Save encrypts and persists a credential value.
func (s *Store) Save(ctx context.Context, cred *store.Credential, plaintext string) error {
	sealed, err := s.vault.Encrypt(plaintext)
	if err != nil {
		return err
	}
	cred.EncryptedValue = sealed
	return s.backing.DB().WithContext(ctx).Save(cred).Error
}
