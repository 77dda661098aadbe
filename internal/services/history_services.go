package services

import (
	"context"

	"provisioner/internal/config"
	"provisioner/internal/dao"
	"provisioner/internal/database"
	"provisioner/pkg/logger"
)

// Watcher is implemented by stores that follow writes from other processes.
type Watcher interface {
	Watch(ctx context.Context, ready chan<- struct{}) error
}

// OpenHistory returns the run store selected by history.driver, or nil when
// history is disabled.
func OpenHistory(cfg *config.Config, log *logger.Logger) (dao.RunDAO, error) {
	switch cfg.History.Driver {
	case config.HistoryFile:
		fileDao, err := dao.NewFileRunDAO(cfg.History.Dir, log)
		if err != nil {
			return nil, err
		}
		return fileDao, nil
	case config.HistoryPostgres:
		db, err := database.InitDB(cfg.DB)
		if err != nil {
			return nil, err
		}
		return dao.NewRunDAO(db), nil
	default:
		return nil, nil
	}
}
