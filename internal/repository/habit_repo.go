package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/habitpath/internal/schema"
	"gorm.io/gorm"
)

// HabitRepository 习惯仓储
type HabitRepository struct {
	db *gorm.DB
}

// NewHabitRepository 创建仓储
func NewHabitRepository(db *gorm.DB) *HabitRepository {
	return &HabitRepository{db: db}
}

// Create 创建习惯
func (r *HabitRepository) Create(ctx context.Context, habit *schema.Habit) error {
	if err := r.db.WithContext(ctx).Create(habit).Error; err != nil {
		return fmt.Errorf("创建习惯失败: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取习惯
func (r *HabitRepository) GetByID(ctx context.Context, id int64) (*schema.Habit, error) {
	var habit schema.Habit
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&habit).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("查询习惯失败: %w", err)
	}
	return &habit, nil
}

// GetByUser 获取用户的所有习惯
func (r *HabitRepository) GetByUser(ctx context.Context, userID string) ([]schema.Habit, error) {
	var habits []schema.Habit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("active DESC, level DESC, created_at").
		Find(&habits).Error
	if err != nil {
		return nil, fmt.Errorf("查询习惯失败: %w", err)
	}
	return habits, nil
}

// UpdateLevel 更新习惯等级
func (r *HabitRepository) UpdateLevel(ctx context.Context, id int64, level int) error {
	err := r.db.WithContext(ctx).
		Model(&schema.Habit{}).
		Where("id = ?", id).
		Update("level", level).Error
	if err != nil {
		return fmt.Errorf("更新习惯等级失败: %w", err)
	}
	return nil
}

// SetActive 启用/停用习惯
func (r *HabitRepository) SetActive(ctx context.Context, id int64, active bool) error {
	err := r.db.WithContext(ctx).
		Model(&schema.Habit{}).
		Where("id = ?", id).
		Update("active", active).Error
	if err != nil {
		return fmt.Errorf("更新习惯状态失败: %w", err)
	}
	return nil
}

// Count 统计习惯数量
func (r *HabitRepository) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&schema.Habit{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计习惯失败: %w", err)
	}
	return count, nil
}
