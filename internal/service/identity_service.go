package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"timesheet-hub/backend/internal/dto"
	"timesheet-hub/backend/internal/model"
	"timesheet-hub/backend/internal/repository"
	pkgerrors "timesheet-hub/backend/pkg/errors"
)

// synthesizedEmailDomain 仅由 id 构成的主体按 "<id>@example.com" 再匹配一次
const synthesizedEmailDomain = "@example.com"

// IdentityService 身份解析接口
//
// 纯查找：把请求主体（Token 中的用户 ID，或开发环境的代理身份头）映射为用户记录，
// 不做任何流程判断。解析结果由调用方显式传入各业务方法。
type IdentityService interface {
	// Resolve 依次按 ID、邮箱、合成邮箱匹配，首个命中即返回；均未命中返回 ErrPrincipalUnknown
	Resolve(ctx context.Context, principal string) (*model.User, error)
	// Provision 为未知主体开通最小员工记录（仅开发模式下创建项目时使用）
	Provision(ctx context.Context, principal string) (*model.User, error)
	// Profile 当前用户信息
	Profile(actor *model.User) *dto.UserResponse
}

type identityService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewIdentityService 创建 IdentityService 实例
func NewIdentityService(repo *repository.Repository, logger *zap.Logger) IdentityService {
	return &identityService{repo: repo, logger: logger}
}

func (s *identityService) Resolve(ctx context.Context, principal string) (*model.User, error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return nil, ErrPrincipalUnknown
	}

	// 1. ID 精确匹配（主键为 uuid，非 uuid 直接跳过以免数据库类型错误）
	if _, err := uuid.Parse(principal); err == nil {
		user, err := s.repo.User.GetByID(ctx, principal)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("按 ID 查询用户失败", zap.String("principal", principal), zap.Error(err))
			return nil, pkgerrors.Storage("查询用户失败", err)
		}
	}

	// 2. 邮箱匹配 3. 合成邮箱匹配
	candidates := []string{principal}
	if !strings.Contains(principal, "@") {
		candidates = append(candidates, principal+synthesizedEmailDomain)
	}
	for _, email := range candidates {
		user, err := s.repo.User.GetByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("按邮箱查询用户失败", zap.String("email", email), zap.Error(err))
			return nil, pkgerrors.Storage("查询用户失败", err)
		}
	}

	return nil, ErrPrincipalUnknown
}

func (s *identityService) Provision(ctx context.Context, principal string) (*model.User, error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return nil, ErrPrincipalUnknown
	}

	user := &model.User{Role: model.RoleEmployee}
	if _, err := uuid.Parse(principal); err == nil {
		user.UserID = principal
		user.Email = principal + synthesizedEmailDomain
		user.Name = principal
	} else if strings.Contains(principal, "@") {
		user.Email = principal
		user.Name = principal[:strings.Index(principal, "@")]
	} else {
		user.Email = principal + synthesizedEmailDomain
		user.Name = principal
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		// 并发开通时由另一请求先写入，重新解析即可
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.Resolve(ctx, principal)
		}
		s.logger.Error("自动开通用户失败", zap.String("principal", principal), zap.Error(err))
		return nil, pkgerrors.Storage("自动开通用户失败", err)
	}

	s.logger.Info("自动开通用户", zap.String("user_id", user.UserID), zap.String("email", user.Email))
	return user, nil
}

func (s *identityService) Profile(actor *model.User) *dto.UserResponse {
	return toUserResponse(actor)
}

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		ManagerID: u.ManagerID,
	}
}

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{ID: u.UserID, Name: u.Name, Email: u.Email}
}
