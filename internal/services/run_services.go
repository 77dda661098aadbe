package services

import (
	"provisioner/internal/dao"
	"provisioner/internal/models"
	perrors "provisioner/pkg/errors"
)

type RunServiceMethods interface {
	ListRuns(page, limit int) ([]models.Run, int64, error)
	GetRunByUUID(id string) (*models.Run, error)
}

type runService struct {
	runDao dao.RunDAO
}

// NewRunService serves run history. A nil DAO means history is disabled.
func NewRunService(runDao dao.RunDAO) RunServiceMethods {
	return &runService{runDao: runDao}
}

func (s *runService) ListRuns(page, limit int) ([]models.Run, int64, error) {
	if s.runDao == nil {
		return nil, 0, perrors.ErrHistoryDisabled
	}
	return s.runDao.ListRunsWithPagination(page, limit)
}

func (s *runService) GetRunByUUID(id string) (*models.Run, error) {
	if s.runDao == nil {
		return nil, perrors.ErrHistoryDisabled
	}
	return s.runDao.GetRunByUUID(id)
}
