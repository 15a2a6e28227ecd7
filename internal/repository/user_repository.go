package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(user).Error, util.ErrEmailRegistered)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) ExistsBy(ctx context.Context, column, value string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).Where(column+" = ?", value).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Save(user).Error
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", time.Now()).
		Error
}

// AddPoints 原子累加积分并返回最新值
func (r *UserRepository) AddPoints(ctx context.Context, userID uint, points int) (int, error) {
	db := r.DB.WithContext(ctx)
	if err := db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("points", gorm.Expr("points + ?", points)).
		Error; err != nil {
		return 0, err
	}
	var total int
	err := db.Model(&model.User{}).Where("id = ?", userID).Select("points").Scan(&total).Error
	return total, err
}

func (r *UserRepository) SetLevel(ctx context.Context, userID uint, level int) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("level", level).
		Error
}

func (r *UserRepository) FindTopByPoints(ctx context.Context, limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).
		Where("role = ?", model.Student).
		Order("points DESC, id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// List 管理后台用户列表
func (r *UserRepository) List(ctx context.Context, role model.UserRole, search string, page, limit int) ([]model.User, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like, like)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []model.User
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}

func (r *UserRepository) SetActive(ctx context.Context, userID uint, active bool) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("is_active", active).Error
}
