package dao

import (
	"errors"
	"fmt"

	"provisioner/internal/models"
	perrors "provisioner/pkg/errors"

	"gorm.io/gorm"
)

const (
	listLimit       = 50
	defaultPageSize = 10
	maxPageSize     = 100
)

type RunDAO interface {
	SaveRun(run *models.Run) error
	GetRunByUUID(uuid string) (*models.Run, error)
	ListRuns() ([]models.Run, error)
	ListRunsWithPagination(page, limit int) ([]models.Run, int64, error)
	DeleteRun(uuid string) error
}

type runDAO struct {
	db *gorm.DB
}

func NewRunDAO(db *gorm.DB) RunDAO {
	return &runDAO{db: db}
}

// SaveRun inserts the run, or replaces it when the UUID already exists.
func (dao *runDAO) SaveRun(run *models.Run) error {
	return dao.db.Save(run).Error
}

func (dao *runDAO) GetRunByUUID(uuid string) (*models.Run, error) {
	var run models.Run
	if err := dao.db.Where("uuid = ?", uuid).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", perrors.ErrRunNotFound, uuid)
		}
		return nil, err
	}
	return &run, nil
}

func (dao *runDAO) ListRuns() ([]models.Run, error) {
	var runs []models.Run
	if err := dao.db.Order("started_at desc").Limit(listLimit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (dao *runDAO) ListRunsWithPagination(page, limit int) ([]models.Run, int64, error) {
	var runs []models.Run
	var total int64

	page, limit = NormalizePage(page, limit)
	offset := (page - 1) * limit

	if err := dao.db.Model(&models.Run{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := dao.db.Order("started_at desc").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error; err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

func (dao *runDAO) DeleteRun(uuid string) error {
	result := dao.db.Where("uuid = ?", uuid).Delete(&models.Run{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", perrors.ErrRunNotFound, uuid)
	}
	return nil
}

// NormalizePage returns the page and limit a paginated query actually uses:
// page at least 1, limit defaulted when unset and capped at maxPageSize.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
