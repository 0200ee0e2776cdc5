package models

// Permission codes seeded with the system. Admin-family roles bypass the
// code check entirely, so these only gate custom roles.
const (
	PermBookManage           = "BOOK_MANAGE"
	PermBookView             = "BOOK_VIEW"
	PermBookIssue            = "BOOK_ISSUE"
	PermCategoryManage       = "CATEGORY_MANAGE"
	PermLanguageManage       = "LANGUAGE_MANAGE"
	PermLocationManage       = "LOCATION_MANAGE"
	PermRequestCreate        = "REQUEST_CREATE"
	PermRequestApprove       = "REQUEST_APPROVE"
	PermRoleManage           = "ROLE_MANAGE"
	PermRoleView             = "ROLE_VIEW"
	PermRolePermissionAssign = "ROLE_PERMISSION_ASSIGN"
	PermPermissionManage     = "PERMISSION_MANAGE"
	PermUserManage           = "USER_MANAGE"
	PermLogView              = "LOG_VIEW"
	PermFileUpload           = "FILE_UPLOAD"
)
