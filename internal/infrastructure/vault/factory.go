package vault

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/restohub/backend/internal/domain/vault"
	"github.com/restohub/backend/internal/infrastructure/config"
)

// NewFromConfig creates the credential vault named by configuration.
// The postgres backend requires a configured key; handles sealed under it
// must stay resolvable across restarts. The memory backend may run on an
// ephemeral key since its handles die with the process anyway.
func NewFromConfig(cfg config.VaultConfig, db *gorm.DB, logger *zap.Logger) (vault.CredentialVault, error) {
	key := cfg.EncryptionKeyBytes()

	switch cfg.Backend {
	case "postgres":
		if key == nil {
			return nil, fmt.Errorf("vault.encryption_key is required for the postgres vault backend")
		}
		logger.Info("using postgres credential vault")
		return NewGormVault(db, key)

	case "memory":
		if key == nil {
			logger.Warn("memory vault running on an ephemeral key; credential handles will not survive a restart")
		}
		logger.Info("using in-memory credential vault")
		return NewMemoryVault(key)

	default:
		return nil, fmt.Errorf("unknown vault backend %q", cfg.Backend)
	}
}
