package repository

import (
	"context"

	"gorm.io/gorm"

	"shiftclock/backend/internal/model"
)

// OrganizationRepository 组织数据访问接口
type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	GetByID(ctx context.Context, id string) (*model.Organization, error)
}

// MemberRepository 组织成员数据访问接口
type MemberRepository interface {
	Create(ctx context.Context, member *model.OrganizationMember) error
	// GetRole 返回成员在组织内的角色原始值，非成员返回 gorm.ErrRecordNotFound
	GetRole(ctx context.Context, orgID, userID string) (string, error)
}

// ── Organization Repository 实现 ──

type organizationRepo struct {
	db *gorm.DB
}

// NewOrganizationRepo 创建 OrganizationRepository 实例
func NewOrganizationRepo(db *gorm.DB) OrganizationRepository {
	return &organizationRepo{db: db}
}

func (r *organizationRepo) Create(ctx context.Context, org *model.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *organizationRepo) GetByID(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", id).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// ── Member Repository 实现 ──

type memberRepo struct {
	db *gorm.DB
}

// NewMemberRepo 创建 MemberRepository 实例
func NewMemberRepo(db *gorm.DB) MemberRepository {
	return &memberRepo{db: db}
}

func (r *memberRepo) Create(ctx context.Context, member *model.OrganizationMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *memberRepo) GetRole(ctx context.Context, orgID, userID string) (string, error) {
	var member model.OrganizationMember
	err := r.db.WithContext(ctx).
		Select("role").
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if err != nil {
		return "", err
	}
	return member.Role, nil
}
