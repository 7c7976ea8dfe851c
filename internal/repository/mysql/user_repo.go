package mysql

import (
	"context"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
)

type PersonRepository struct {
	DB *gorm.DB
}

func (r *PersonRepository) Create(ctx context.Context, p *model.Person) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

// Delete 按 id 删除账号，返回受影响行数
func (r *PersonRepository) Delete(ctx context.Context, id uint64) (int64, error) {
	res := r.DB.WithContext(ctx).Delete(&model.Person{}, id)
	return res.RowsAffected, res.Error
}

func (r *PersonRepository) FindByID(ctx context.Context, id uint64) (*model.Person, error) {
	var p model.Person
	err := r.DB.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *PersonRepository) FindByEmail(ctx context.Context, email string) (*model.Person, error) {
	var p model.Person
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&p).Error
	return &p, err
}

// DeleteTx 删除账号，fn 失败则回滚
func (r *PersonRepository) DeleteTx(ctx context.Context, id uint64, fn func() error) (int64, error) {
	var affected int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Person{}, id)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}
		return fn()
	})
	return affected, err
}

// FindByIDs 按 id 升序批量加载
func (r *PersonRepository) FindByIDs(ctx context.Context, ids []uint64) ([]model.Person, error) {
	if len(ids) == 0 {
		return []model.Person{}, nil
	}
	var list []model.Person
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&list).Error
	return list, err
}
