package handlers

import (
	"errors"
	"net/http"

	"booknest_backend/internal/middleware"
	"booknest_backend/internal/services"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RoleHandler holds the role service.
type RoleHandler struct {
	roleService services.RoleService
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(rs services.RoleService) *RoleHandler {
	return &RoleHandler{roleService: rs}
}

func respondRoleError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrRoleNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Role not found.", err.Error()))
	case errors.Is(err, services.ErrSystemRoleProtected):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "System roles cannot be modified or deleted.", err.Error()))
	case errors.Is(err, services.ErrRoleNameExists), errors.Is(err, services.ErrPermissionExists):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Name already in use.", err.Error()))
	case errors.Is(err, services.ErrPermissionNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "One or more permissions do not exist.", err.Error()))
	default:
		utils.LogError(err, "RoleHandler: failed to "+action)
		internalError(c, action)
	}
}

func (h *RoleHandler) CreateRole(c *gin.Context) {
	var input services.RoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	role, err := h.roleService.CreateRole(input, middleware.CurrentUser(c))
	if err != nil {
		respondRoleError(c, err, "create role")
		return
	}
	c.JSON(http.StatusCreated, role)
}

func (h *RoleHandler) GetRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	role, err := h.roleService.GetRole(id)
	if err != nil {
		respondRoleError(c, err, "load role")
		return
	}
	c.JSON(http.StatusOK, role)
}

func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles()
	if err != nil {
		respondRoleError(c, err, "list roles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": roles, "count": len(roles)})
}

func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.RoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	role, err := h.roleService.UpdateRole(id, input, middleware.CurrentUser(c))
	if err != nil {
		respondRoleError(c, err, "update role")
		return
	}
	c.JSON(http.StatusOK, role)
}

func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.roleService.DeleteRole(id, middleware.CurrentUser(c)); err != nil {
		respondRoleError(c, err, "delete role")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role deleted."})
}

// AssignPermissions replaces the role's permission set with the posted one.
func (h *RoleHandler) AssignPermissions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input services.AssignPermissionsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	role, err := h.roleService.AssignPermissions(id, input, middleware.CurrentUser(c))
	if err != nil {
		respondRoleError(c, err, "assign permissions")
		return
	}
	c.JSON(http.StatusOK, role)
}

func (h *RoleHandler) CreatePermission(c *gin.Context) {
	var input services.PermissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	perm, err := h.roleService.CreatePermission(input, middleware.CurrentUser(c))
	if err != nil {
		respondRoleError(c, err, "create permission")
		return
	}
	c.JSON(http.StatusCreated, perm)
}

func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleService.ListPermissions()
	if err != nil {
		respondRoleError(c, err, "list permissions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": perms, "count": len(perms)})
}
