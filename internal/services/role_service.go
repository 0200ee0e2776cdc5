package services

import (
	"database/sql"
	"errors"
	"fmt"

	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrSystemRoleProtected = errors.New("system roles cannot be modified or deleted")
	ErrRoleNameExists      = errors.New("a role with this name already exists")
	ErrPermissionExists    = errors.New("a permission with this code already exists")
	ErrPermissionNotFound  = errors.New("one or more permissions do not exist")
)

// --- Data Transfer Objects (DTOs) ---

// RoleInput carries role create/update payloads.
type RoleInput struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// AssignPermissionsInput replaces a role's permission set wholesale.
type AssignPermissionsInput struct {
	PermissionIDs []int64 `json:"permission_ids" binding:"required"`
}

// PermissionInput carries permission create payloads.
type PermissionInput struct {
	Code        *string `json:"code"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// --- RoleService Interface ---
type RoleService interface {
	CreateRole(input RoleInput, actor *models.User) (*models.Role, error)
	GetRole(roleID int64) (*models.Role, error)
	ListRoles() ([]models.Role, error)
	UpdateRole(roleID int64, input RoleInput, actor *models.User) (*models.Role, error)
	DeleteRole(roleID int64, actor *models.User) error
	// AssignPermissions swaps the role's permission set in one transaction;
	// the result is exactly the given set, not a merge.
	AssignPermissions(roleID int64, input AssignPermissionsInput, actor *models.User) (*models.Role, error)

	CreatePermission(input PermissionInput, actor *models.User) (*models.Permission, error)
	ListPermissions() ([]models.Permission, error)
}

type roleService struct {
	roleRepo repositories.RoleRepository
	logs     LogService
	db       *sql.DB
}

// NewRoleService creates a new instance of RoleService.
func NewRoleService(roleRepo repositories.RoleRepository, logs LogService, db *sql.DB) RoleService {
	return &roleService{roleRepo: roleRepo, logs: logs, db: db}
}

func (s *roleService) CreateRole(input RoleInput, actor *models.User) (*models.Role, error) {
	role := &models.Role{Name: input.Name, Description: input.Description}
	id, err := s.roleRepo.CreateRole(s.db, role)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrRoleNameExists
		}
		return nil, err
	}
	targetType := "role"
	s.logs.Record(actorIDOf(actor), "ROLE_CREATE", fmt.Sprintf("Created role %q", input.Name), &targetType, &id)
	return s.roleRepo.FindRoleByID(id)
}

func (s *roleService) GetRole(roleID int64) (*models.Role, error) {
	role, err := s.roleRepo.FindRoleByID(roleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func (s *roleService) ListRoles() ([]models.Role, error) {
	return s.roleRepo.ListRoles()
}

func (s *roleService) UpdateRole(roleID int64, input RoleInput, actor *models.User) (*models.Role, error) {
	role, err := s.GetRole(roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem() {
		return nil, ErrSystemRoleProtected
	}

	role.Name = input.Name
	role.Description = input.Description
	if err := s.roleRepo.UpdateRole(s.db, role); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrRoleNameExists
		}
		return nil, err
	}

	targetType := "role"
	s.logs.Record(actorIDOf(actor), "ROLE_UPDATE", fmt.Sprintf("Updated role %d to %q", roleID, input.Name), &targetType, &roleID)
	return s.roleRepo.FindRoleByID(roleID)
}

func (s *roleService) DeleteRole(roleID int64, actor *models.User) error {
	role, err := s.GetRole(roleID)
	if err != nil {
		return err
	}
	if role.IsSystem() {
		return ErrSystemRoleProtected
	}
	if err := s.roleRepo.SoftDeleteRole(s.db, roleID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}
	targetType := "role"
	s.logs.Record(actorIDOf(actor), "ROLE_DELETE", fmt.Sprintf("Deleted role %q (id %d)", role.Name, roleID), &targetType, &roleID)
	return nil
}

func (s *roleService) AssignPermissions(roleID int64, input AssignPermissionsInput, actor *models.User) (*models.Role, error) {
	if _, err := s.GetRole(roleID); err != nil {
		return nil, err
	}

	// Reject unknown permission ids up front, instead of silently assigning
	// the subset that exists.
	found, err := s.roleRepo.FindPermissionsByIDs(input.PermissionIDs)
	if err != nil {
		return nil, err
	}
	if len(found) != len(uniqueIDs(input.PermissionIDs)) {
		return nil, ErrPermissionNotFound
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.roleRepo.ReplaceRolePermissions(tx, roleID, input.PermissionIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing permission assignment: %w", err)
	}

	targetType := "role"
	s.logs.Record(actorIDOf(actor), "ROLE_PERMISSION_ASSIGN",
		fmt.Sprintf("Role %d now has %d permissions", roleID, len(input.PermissionIDs)), &targetType, &roleID)
	return s.roleRepo.FindRoleByID(roleID)
}

func (s *roleService) CreatePermission(input PermissionInput, actor *models.User) (*models.Permission, error) {
	perm := &models.Permission{Code: input.Code, Name: input.Name, Description: input.Description}
	id, err := s.roleRepo.CreatePermission(s.db, perm)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrPermissionExists
		}
		return nil, err
	}
	perm.ID = id
	targetType := "permission"
	s.logs.Record(actorIDOf(actor), "PERMISSION_CREATE", fmt.Sprintf("Created permission %q", input.Name), &targetType, &id)
	return perm, nil
}

func (s *roleService) ListPermissions() ([]models.Permission, error) {
	return s.roleRepo.ListPermissions()
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
