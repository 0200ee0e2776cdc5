package router

import (
	"booknest_backend/internal/handlers"
	"booknest_backend/internal/middleware"
	"booknest_backend/internal/models"
	"booknest_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// registerPublicRoutes mounts endpoints that need no bearer token. The book
// routes attach an optional principal so visibility can still be personalized
// for logged-in callers.
func registerPublicRoutes(
	api *gin.RouterGroup,
	authz services.AuthzService,
	authHandler *handlers.AuthHandler,
	bookHandler *handlers.BookHandler,
	contentHandler *handlers.ContentHandler,
) {
	api.POST("/token", authHandler.Login)
	api.POST("/users/register", authHandler.Register)
	api.POST("/auth/google", authHandler.GoogleLogin)
	api.POST("/password/forgot-password", authHandler.ForgotPassword)
	api.POST("/password/reset-password", authHandler.ResetPassword)

	browse := api.Group("", middleware.OptionalAuth(authz))
	{
		browse.GET("/books", bookHandler.ListBooks)
		browse.GET("/books/:id", bookHandler.GetBook)
	}

	api.GET("/posts/public", contentHandler.PublicPosts)
	api.GET("/donation", contentHandler.GetDonationInfo)
}

// registerAuthenticatedRoutes mounts endpoints for any active logged-in user.
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	authz services.AuthzService,
	authHandler *handlers.AuthHandler,
	accessHandler *handlers.AccessHandler,
	issueHandler *handlers.IssueHandler,
) {
	authed := api.Group("", middleware.RequireAuth(authz))
	{
		authed.GET("/profile", authHandler.GetProfile)
		authed.PUT("/profile", authHandler.UpdateProfile)
		authed.POST("/profile/change-password", authHandler.ChangePassword)

		restricted := authed.Group("/restricted-requests")
		{
			restricted.POST("/submit", accessHandler.SubmitAccessRequest)
			restricted.GET("/check-status/:book_id", accessHandler.CheckAccessStatus)
			restricted.GET("/my-requests", accessHandler.MyAccessRequests)
		}

		authed.POST("/requests/access", accessHandler.SubmitBookRequest)
		authed.GET("/requests/my-requests", accessHandler.MyBookRequests)
		authed.GET("/issues/my", issueHandler.MyIssues)
	}
}

// registerManagementRoutes mounts the permission-gated staff surface.
func registerManagementRoutes(
	api *gin.RouterGroup,
	authz services.AuthzService,
	bookHandler *handlers.BookHandler,
	accessHandler *handlers.AccessHandler,
	issueHandler *handlers.IssueHandler,
	catalogHandler *handlers.CatalogHandler,
	roleHandler *handlers.RoleHandler,
	userHandler *handlers.UserHandler,
	contentHandler *handlers.ContentHandler,
	uploadHandler *handlers.UploadHandler,
) {
	staff := api.Group("", middleware.RequireAuth(authz))

	books := staff.Group("/books", middleware.RequirePermission(authz, models.PermBookManage))
	{
		books.POST("", bookHandler.CreateBook)
		books.PUT("/:id", bookHandler.UpdateBook)
		books.DELETE("/:id", bookHandler.DeleteBook)
		books.POST("/:id/grant-access", bookHandler.GrantAccess)
	}

	// Restricted-content review is reserved for the admin role family, not a
	// permission code.
	adminRequests := staff.Group("/restricted-requests", middleware.RequireAdminRole(authz))
	{
		adminRequests.GET("", accessHandler.ListAccessRequests)
		adminRequests.POST("/review/:id", accessHandler.ReviewAccessRequest)
	}

	borrowReview := staff.Group("/requests", middleware.RequirePermission(authz, models.PermRequestApprove))
	{
		borrowReview.GET("", accessHandler.ListBookRequests)
		borrowReview.POST("/review/:id", accessHandler.ReviewBookRequest)
	}
	staff.POST("/requests/upload", middleware.RequirePermission(authz, models.PermRequestCreate), accessHandler.SubmitUploadRequest)

	uploads := staff.Group("/upload-requests", middleware.RequirePermission(authz, models.PermBookManage))
	{
		uploads.GET("", accessHandler.ListUploadRequests)
		uploads.POST("/:id/review", accessHandler.ReviewUploadRequest)
	}

	copies := staff.Group("", middleware.RequirePermission(authz, models.PermBookManage))
	{
		copies.POST("/copies", issueHandler.AddCopy)
		copies.DELETE("/copies/:id", issueHandler.RemoveCopy)
	}
	// Reading the shelf inventory is a circulation concern, not a catalog one.
	staff.GET("/books/:id/copies", middleware.RequirePermission(authz, models.PermBookIssue), issueHandler.ListCopies)

	issues := staff.Group("/issues", middleware.RequirePermission(authz, models.PermBookIssue))
	{
		issues.POST("", issueHandler.IssueBook)
		issues.POST("/:id/return", issueHandler.ReturnBook)
		issues.GET("", issueHandler.ListIssues)
	}

	categories := staff.Group("/categories", middleware.RequirePermission(authz, models.PermCategoryManage))
	{
		categories.POST("", catalogHandler.CreateCategory)
		categories.PUT("/:id", catalogHandler.UpdateCategory)
		categories.DELETE("/:id", catalogHandler.DeleteCategory)
	}
	api.GET("/categories", catalogHandler.ListCategories)

	subcategories := staff.Group("/subcategories", middleware.RequirePermission(authz, models.PermCategoryManage))
	{
		subcategories.POST("", catalogHandler.CreateSubcategory)
		subcategories.PUT("/:id", catalogHandler.UpdateSubcategory)
		subcategories.DELETE("/:id", catalogHandler.DeleteSubcategory)
	}
	api.GET("/subcategories", catalogHandler.ListSubcategories)

	languages := staff.Group("/languages", middleware.RequirePermission(authz, models.PermLanguageManage))
	{
		languages.POST("", catalogHandler.CreateLanguage)
		languages.PUT("/:id", catalogHandler.UpdateLanguage)
		languages.DELETE("/:id", catalogHandler.DeleteLanguage)
	}
	api.GET("/languages", catalogHandler.ListLanguages)

	locations := staff.Group("/locations", middleware.RequirePermission(authz, models.PermLocationManage))
	{
		locations.POST("", catalogHandler.CreateLocation)
		locations.PUT("/:id", catalogHandler.UpdateLocation)
		locations.DELETE("/:id", catalogHandler.DeleteLocation)
	}
	api.GET("/locations", catalogHandler.ListLocations)

	roles := staff.Group("/roles")
	{
		roles.GET("", middleware.RequirePermission(authz, models.PermRoleView), roleHandler.ListRoles)
		roles.GET("/:id", middleware.RequirePermission(authz, models.PermRoleView), roleHandler.GetRole)
		roles.POST("", middleware.RequirePermission(authz, models.PermRoleManage), roleHandler.CreateRole)
		roles.PUT("/:id", middleware.RequirePermission(authz, models.PermRoleManage), roleHandler.UpdateRole)
		roles.DELETE("/:id", middleware.RequirePermission(authz, models.PermRoleManage), roleHandler.DeleteRole)
		roles.PUT("/:id/permissions", middleware.RequirePermission(authz, models.PermRolePermissionAssign), roleHandler.AssignPermissions)
	}

	permissions := staff.Group("/permissions", middleware.RequirePermission(authz, models.PermPermissionManage))
	{
		permissions.POST("", roleHandler.CreatePermission)
		permissions.GET("", roleHandler.ListPermissions)
	}

	users := staff.Group("/users")
	{
		// Circulation staff look users up when issuing books; mutating
		// accounts stays behind user management.
		users.GET("", middleware.RequirePermission(authz, models.PermBookIssue), userHandler.ListUsers)
		users.POST("", middleware.RequirePermission(authz, models.PermUserManage), userHandler.CreateUser)
		users.GET("/:id", middleware.RequirePermission(authz, models.PermUserManage), userHandler.GetUser)
		users.PUT("/:id", middleware.RequirePermission(authz, models.PermUserManage), userHandler.UpdateUser)
		users.DELETE("/:id", middleware.RequirePermission(authz, models.PermUserManage), userHandler.DeleteUser)
	}

	staff.GET("/logs", middleware.RequirePermission(authz, models.PermLogView), contentHandler.ListLogs)

	posts := staff.Group("/posts", middleware.RequirePermission(authz, models.PermUserManage))
	{
		posts.GET("", contentHandler.ListPosts)
		posts.POST("", contentHandler.CreatePost)
		posts.PUT("/:id", contentHandler.UpdatePost)
		posts.DELETE("/:id", contentHandler.DeletePost)
	}

	staff.PUT("/donation", middleware.RequirePermission(authz, models.PermUserManage), contentHandler.UpdateDonationInfo)
	staff.POST("/uploads", middleware.RequirePermission(authz, models.PermFileUpload), uploadHandler.Upload)
}
