package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sharetrust/sharetrust/internal/models"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListActive 列出启用的类别
func (r *CategoryRepository) ListActive() ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Where("is_active = ?", true).Order("name ASC").Find(&categories).Error
	return categories, err
}

// GetByID 根据 ID 获取类别
func (r *CategoryRepository) GetByID(id string) (*models.Category, error) {
	var category models.Category
	if err := r.db.Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Seed 幂等写入内置类别，name 冲突时跳过
func (r *CategoryRepository) Seed(categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&categories).Error
}
