package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"booknest_backend/internal/handlers"
	"booknest_backend/internal/models"
	"booknest_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAuthz resolves canned principals keyed by bearer token and replicates
// the real gate: admin roles bypass, everyone else needs the code.
type stubAuthz struct {
	principals map[string]*models.User
}

func (s *stubAuthz) ResolvePrincipal(token string) (*models.User, error) {
	if user, ok := s.principals[token]; ok {
		return user, nil
	}
	return nil, services.ErrInvalidToken
}

func (s *stubAuthz) RequireActivePrincipal(token string) (*models.User, error) {
	user, err := s.ResolvePrincipal(token)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, services.ErrInactiveUser
	}
	return user, nil
}

func (s *stubAuthz) Authorize(user *models.User, code string) error {
	if user == nil {
		return services.ErrUnauthenticated
	}
	if !user.IsActive() {
		return services.ErrInactiveUser
	}
	if s.IsContentAdmin(user) || user.PermissionCodes()[code] {
		return nil
	}
	return services.ErrPermissionDenied
}

func (s *stubAuthz) IsContentAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	return strings.EqualFold(user.RoleName(), models.RoleAdmin) ||
		strings.EqualFold(user.RoleName(), models.RoleSuperAdmin)
}

// Minimal service stubs so the handlers behind the gates respond without a
// database. The gate tests only care about status codes.

type stubUserService struct{}

func (stubUserService) GetProfile(int64) (*models.User, error) { return &models.User{}, nil }
func (stubUserService) UpdateProfile(int64, services.UpdateProfileRequest) (*models.User, error) {
	return &models.User{}, nil
}
func (stubUserService) ListUsers(int64, int64) ([]models.User, error) { return nil, nil }
func (stubUserService) GetUser(int64) (*models.User, error) { return &models.User{}, nil }
func (stubUserService) CreateUser(services.AdminCreateUserRequest, *models.User) (*models.User, error) {
	return &models.User{}, nil
}
func (stubUserService) UpdateUser(int64, services.AdminUpdateUserRequest, *models.User) (*models.User, error) {
	return &models.User{}, nil
}
func (stubUserService) DeleteUser(int64, *models.User) error { return nil }

type stubContentService struct{}

func (stubContentService) CreatePost(services.PostInput, *models.User) (*models.Post, error) {
	return &models.Post{}, nil
}
func (stubContentService) GetPost(int64) (*models.Post, error) { return &models.Post{}, nil }
func (stubContentService) ListPosts(bool) ([]models.Post, error) { return nil, nil }
func (stubContentService) UpdatePost(int64, services.PostInput, *models.User) (*models.Post, error) {
	return &models.Post{}, nil
}
func (stubContentService) DeletePost(int64, *models.User) error { return nil }
func (stubContentService) GetDonationInfo() (*models.DonationInfo, error) {
	return &models.DonationInfo{}, nil
}
func (stubContentService) UpdateDonationInfo(services.DonationInput, *models.User) (*models.DonationInfo, error) {
	return &models.DonationInfo{}, nil
}

type stubLogService struct{}

func (stubLogService) Record(*int64, string, string, *string, *int64) {}
func (stubLogService) ListLogs(int64, int64) ([]models.Log, error) { return nil, nil }

type stubIssueService struct{}

func (stubIssueService) AddCopy(services.CopyInput, *models.User) (*models.BookCopy, error) {
	return &models.BookCopy{}, nil
}
func (stubIssueService) ListCopies(int64) ([]models.BookCopy, error) { return nil, nil }
func (stubIssueService) RemoveCopy(int64, *models.User) error        { return nil }
func (stubIssueService) IssueBook(services.IssueInput, *models.User) (*models.IssuedBook, error) {
	return &models.IssuedBook{}, nil
}
func (stubIssueService) ReturnBook(int64, *models.User) (*models.IssuedBook, error) {
	return &models.IssuedBook{}, nil
}
func (stubIssueService) ListIssues(string) ([]models.IssuedBook, error) { return nil, nil }
func (stubIssueService) ListUserIssues(int64) ([]models.IssuedBook, error) { return nil, nil }

type stubAccessService struct{}

func (stubAccessService) SubmitAccessRequest(services.AccessRequestInput, *models.User) (*models.AccessRequest, error) {
	return &models.AccessRequest{}, nil
}
func (stubAccessService) CheckAccessStatus(int64, *models.User) (*services.AccessStatusResult, error) {
	return &services.AccessStatusResult{}, nil
}
func (stubAccessService) ListMyAccessRequests(*models.User) ([]models.AccessRequest, error) {
	return nil, nil
}
func (stubAccessService) ListAccessRequests() ([]models.AccessRequest, error) { return nil, nil }
func (stubAccessService) ReviewAccessRequest(int64, services.ReviewInput, *models.User) (*models.AccessRequest, error) {
	return &models.AccessRequest{}, nil
}
func (stubAccessService) SubmitBookRequest(services.BookRequestInput, *models.User) (*models.BookRequest, error) {
	return &models.BookRequest{}, nil
}
func (stubAccessService) ListMyBookRequests(*models.User) ([]models.BookRequest, error) {
	return nil, nil
}
func (stubAccessService) ListBookRequests(string) ([]models.BookRequest, error) { return nil, nil }
func (stubAccessService) ReviewBookRequest(int64, services.ReviewInput, *models.User) (*models.BookRequest, error) {
	return &models.BookRequest{}, nil
}
func (stubAccessService) SubmitUploadRequest(services.UploadRequestInput, *models.User) (*models.UploadRequest, error) {
	return &models.UploadRequest{}, nil
}
func (stubAccessService) ListUploadRequests(string) ([]models.UploadRequest, error) {
	return nil, nil
}
func (stubAccessService) ReviewUploadRequest(int64, services.ReviewInput, *models.User) (*models.UploadRequest, error) {
	return &models.UploadRequest{}, nil
}

func gatePrincipal(id int64, roleName string, codes ...string) *models.User {
	role := &models.Role{ID: id + 100, Name: roleName}
	for i, code := range codes {
		c := code
		role.Permissions = append(role.Permissions, models.Permission{ID: int64(i + 1), Code: &c, Name: code})
	}
	return &models.User{ID: id, Username: "staffer", Status: models.UserStatusActive, RoleID: role.ID, Role: role}
}

func newGateRouter(principals map[string]*models.User) *gin.Engine {
	engine := gin.New()
	authz := &stubAuthz{principals: principals}

	authHandler := handlers.NewAuthHandler(nil, stubUserService{})
	accessHandler := handlers.NewAccessHandler(stubAccessService{})
	issueHandler := handlers.NewIssueHandler(stubIssueService{})
	userHandler := handlers.NewUserHandler(stubUserService{})
	contentHandler := handlers.NewContentHandler(stubContentService{}, stubLogService{})

	api := engine.Group("/api")
	registerAuthenticatedRoutes(api, authz, authHandler, accessHandler, issueHandler)
	registerManagementRoutes(api, authz, nil, accessHandler, issueHandler, nil, nil, userHandler, contentHandler, nil)
	return engine
}

func performAs(engine *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestUserRouteGates(t *testing.T) {
	engine := newGateRouter(map[string]*models.User{
		"issuer":  gatePrincipal(1, "Librarian", models.PermBookIssue),
		"manager": gatePrincipal(2, "Registrar", models.PermUserManage),
	})

	t.Run("circulation staff can list users", func(t *testing.T) {
		w := performAs(engine, http.MethodGet, "/api/users", "issuer", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("user managers cannot list users without the circulation code", func(t *testing.T) {
		w := performAs(engine, http.MethodGet, "/api/users", "manager", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("creating accounts needs user management", func(t *testing.T) {
		body := `{"username":"shelver","email":"shelver@example.com","password":"s3cret-pass","role_id":3}`
		w := performAs(engine, http.MethodPost, "/api/users", "manager", body)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = performAs(engine, http.MethodPost, "/api/users", "issuer", body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestContentRouteGates(t *testing.T) {
	engine := newGateRouter(map[string]*models.User{
		"issuer":  gatePrincipal(1, "Librarian", models.PermBookIssue),
		"manager": gatePrincipal(2, "Registrar", models.PermUserManage),
	})

	t.Run("posts are writable with user management, admin role not required", func(t *testing.T) {
		body := `{"title":"Closed on Friday","content":"Inventory day."}`
		w := performAs(engine, http.MethodPost, "/api/posts", "manager", body)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = performAs(engine, http.MethodPost, "/api/posts", "issuer", body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("donation page follows the same gate", func(t *testing.T) {
		body := `{"title":"Support the library"}`
		w := performAs(engine, http.MethodPut, "/api/donation", "manager", body)
		assert.Equal(t, http.StatusOK, w.Code)

		w = performAs(engine, http.MethodPut, "/api/donation", "issuer", body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCopyRouteGates(t *testing.T) {
	engine := newGateRouter(map[string]*models.User{
		"issuer":    gatePrincipal(1, "Librarian", models.PermBookIssue),
		"cataloger": gatePrincipal(2, "Cataloger", models.PermBookManage),
	})

	t.Run("reading the shelf is a circulation concern", func(t *testing.T) {
		w := performAs(engine, http.MethodGet, "/api/books/1/copies", "issuer", "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = performAs(engine, http.MethodGet, "/api/books/1/copies", "cataloger", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("registering copies stays behind book management", func(t *testing.T) {
		body := `{"book_id":1,"location_id":2}`
		w := performAs(engine, http.MethodPost, "/api/copies", "cataloger", body)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = performAs(engine, http.MethodPost, "/api/copies", "issuer", body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRequestRouteGates(t *testing.T) {
	engine := newGateRouter(map[string]*models.User{
		"creator": gatePrincipal(1, "Contributor", models.PermRequestCreate),
		"member":  gatePrincipal(2, models.RoleMember),
	})

	t.Run("upload submission needs the request-create code", func(t *testing.T) {
		body := `{"book_id":1}`
		w := performAs(engine, http.MethodPost, "/api/requests/upload", "creator", body)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = performAs(engine, http.MethodPost, "/api/requests/upload", "member", body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("borrow requests are open to any active member", func(t *testing.T) {
		body := `{"book_id":1,"request_reason":"research","delivery_address":"12 Library Lane"}`
		w := performAs(engine, http.MethodPost, "/api/requests/access", "member", body)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}
