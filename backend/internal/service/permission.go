package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shiftclock/backend/internal/repository"
)

// Role 组织内角色，数值越大权限越高
type Role int

const (
	RoleUnknown Role = iota // 无法识别的角色，不授予任何权限
	RoleWorker
	RoleManager
	RoleAdmin
)

// ParseRole 解析存储中的角色字符串，未知值落入 RoleUnknown
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	case "worker":
		return RoleWorker
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// Permission 受控操作
type Permission string

const (
	PermApproveTimesheet  Permission = "approve-timesheet"
	PermManageShift       Permission = "manage-shift"
	PermReviewCorrection  Permission = "review-correction"
	PermOverrideTime      Permission = "override-time"
	PermExportTimesheet   Permission = "export-timesheet"
	PermRequestCorrection Permission = "request-correction"
	PermClock             Permission = "clock"
	PermViewShift         Permission = "view-shift"
)

// permissionMinRole 每项权限要求的最低角色；审批工时仅限组织最高角色
var permissionMinRole = map[Permission]Role{
	PermApproveTimesheet:  RoleAdmin,
	PermManageShift:       RoleManager,
	PermReviewCorrection:  RoleManager,
	PermOverrideTime:      RoleManager,
	PermExportTimesheet:   RoleManager,
	PermRequestCorrection: RoleWorker,
	PermClock:             RoleWorker,
	PermViewShift:         RoleWorker,
}

// Authorize 判断角色是否具备权限
func Authorize(role Role, perm Permission) bool {
	if role == RoleUnknown {
		return false
	}
	min, ok := permissionMinRole[perm]
	return ok && role >= min
}

// resolveRole 查询成员角色；非组织成员返回 RoleUnknown
func resolveRole(ctx context.Context, repo *repository.Repository, orgID, actorID string) (Role, error) {
	raw, err := repo.Member.GetRole(ctx, orgID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RoleUnknown, nil
		}
		return RoleUnknown, err
	}
	return ParseRole(raw), nil
}

// requirePermission 权限闸门：任何写操作之前调用，角色缺失一律 FORBIDDEN
func requirePermission(ctx context.Context, repo *repository.Repository, orgID, actorID string, perm Permission) (Role, error) {
	if actorID == "" {
		return RoleUnknown, ErrForbidden
	}
	role, err := resolveRole(ctx, repo, orgID, actorID)
	if err != nil {
		return RoleUnknown, err
	}
	if !Authorize(role, perm) {
		return role, ErrForbidden
	}
	return role, nil
}
