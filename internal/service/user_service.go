package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"mime/multipart"
	"strings"
	"time"
)

// UserService 个人资料与管理员用户管理
type UserService struct {
	UserRepo     *repository.UserRepository
	Storage      *StorageService
	Gamification *GamificationService
}

func NewUserService(userRepo *repository.UserRepository, storage *StorageService, gamification *GamificationService) *UserService {
	return &UserService{UserRepo: userRepo, Storage: storage, Gamification: gamification}
}

// Profile 个人资料，附带已获得的徽章
type Profile struct {
	*model.User
	FullName string            `json:"full_name"`
	Badges   []model.UserBadge `json:"badges"`
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.Gamification.UserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []model.UserBadge{}
	}
	return &Profile{User: user, FullName: user.FullName(), Badges: badges}, nil
}

type ProfileRequest struct {
	FirstName   *string `json:"first_name" binding:"omitempty,max=150"`
	LastName    *string `json:"last_name" binding:"omitempty,max=150"`
	Bio         *string `json:"bio"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	Address     *string `json:"address"`
	DateOfBirth *string `json:"date_of_birth"`
	Avatar      *string `json:"avatar"`
}

// UpdateProfile 只更新请求中出现的字段
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req ProfileRequest) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			user.DateOfBirth = nil
		} else {
			dob, err := time.Parse(util.DateFormat, *req.DateOfBirth)
			if err != nil {
				return nil, util.ValidationError("date_of_birth must be YYYY-MM-DD")
			}
			if dob.After(time.Now()) {
				return nil, util.ValidationError("date_of_birth is in the future")
			}
			user.DateOfBirth = &dob
		}
	}
	if err := s.UserRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UploadAvatar(ctx context.Context, userID uint, fh *multipart.FileHeader) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	file, err := s.Storage.Save(ctx, "avatars", fh, util.MaxAvatarSize, []string{util.MimeImage})
	if err != nil {
		return nil, err
	}
	user.Avatar = file.URL
	if err := s.UserRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

type UserQuery struct {
	Role   model.UserRole `form:"role"`
	Search string         `form:"search"`
}

func (s *UserService) ListUsers(ctx context.Context, q UserQuery, page, limit int) ([]model.User, int64, error) {
	if q.Role != "" && !q.Role.Valid() {
		return nil, 0, util.ErrInvalidRole
	}
	return s.UserRepo.List(ctx, q.Role, strings.TrimSpace(q.Search), page, limit)
}

// SetActive 管理员停用或启用账号，不能停用自己
func (s *UserService) SetActive(ctx context.Context, actor Actor, userID uint, active bool) error {
	if actor.ID == userID && !active {
		return util.ValidationError("cannot disable your own account")
	}
	if _, err := s.UserRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	return s.UserRepo.SetActive(ctx, userID, active)
}
