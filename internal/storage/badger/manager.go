package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/curatorhq/curator/internal/common"
	"github.com/curatorhq/curator/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	video    interfaces.VideoStorage
	taxonomy interfaces.TaxonomyStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		video:    NewVideoStorage(db, logger),
		taxonomy: NewTaxonomyStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// VideoStorage returns the Video storage interface
func (m *Manager) VideoStorage() interfaces.VideoStorage {
	return m.video
}

// TaxonomyStorage returns the Taxonomy storage interface
func (m *Manager) TaxonomyStorage() interfaces.TaxonomyStorage {
	return m.taxonomy
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
