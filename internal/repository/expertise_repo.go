package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/habitpath/internal/schema"
	"gorm.io/gorm"
)

// ExpertiseRepository 领域经验仓储
type ExpertiseRepository struct {
	db *gorm.DB
}

// NewExpertiseRepository 创建仓储
func NewExpertiseRepository(db *gorm.DB) *ExpertiseRepository {
	return &ExpertiseRepository{db: db}
}

// Get 获取用户在某领域的经验记录
func (r *ExpertiseRepository) Get(ctx context.Context, userID, code string) (*schema.DomainExpertise, error) {
	var rec schema.DomainExpertise
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND code = ?", userID, code).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询领域经验失败: %w", err)
	}
	return &rec, nil
}

// GetByUser 获取用户的所有领域经验
func (r *ExpertiseRepository) GetByUser(ctx context.Context, userID string) ([]schema.DomainExpertise, error) {
	var recs []schema.DomainExpertise
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("level DESC, points DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("查询领域经验失败: %w", err)
	}
	return recs, nil
}

// ApplyDelta 在单个写事务内完成读-改-写：入账增量并按 levelFor 重算等级。
// SQLite 写事务串行执行，同一行的并发入账不会互相丢失。
// 返回入账前后的记录快照。
func (r *ExpertiseRepository) ApplyDelta(ctx context.Context, userID, code, name string, delta int64, levelFor func(points int64) int) (old, updated *schema.DomainExpertise, err error) {
	if levelFor == nil {
		return nil, nil, fmt.Errorf("levelFor 不能为空")
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec schema.DomainExpertise
		findErr := tx.Where("user_id = ? AND code = ?", userID, code).First(&rec).Error
		if findErr != nil {
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("查询领域经验失败: %w", findErr)
			}
			rec = schema.DomainExpertise{
				UserID: userID,
				Code:   code,
				Name:   name,
				Points: 0,
				Level:  levelFor(0),
			}
			if createErr := tx.Create(&rec).Error; createErr != nil {
				return fmt.Errorf("创建领域经验失败: %w", createErr)
			}
		}

		before := rec
		old = &before

		rec.Points += delta
		if rec.Points < 0 {
			rec.Points = 0
		}
		rec.Level = levelFor(rec.Points)
		if name != "" && rec.Name == "" {
			rec.Name = name
		}

		if saveErr := tx.Save(&rec).Error; saveErr != nil {
			return fmt.Errorf("保存领域经验失败: %w", saveErr)
		}
		after := rec
		updated = &after
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return old, updated, nil
}
