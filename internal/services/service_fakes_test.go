package services

import (
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newStubDB returns a mocked *sql.DB for service paths that open transactions.
// The fakes below ignore the executor, so tests only script Begin/Commit.
func newStubDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func userWithRole(id int64, roleName string, permissionCodes ...string) *models.User {
	role := &models.Role{ID: id + 100, Name: roleName}
	for i, code := range permissionCodes {
		c := code
		role.Permissions = append(role.Permissions, models.Permission{ID: int64(i + 1), Code: &c, Name: code})
	}
	return &models.User{
		ID:       id,
		Username: "testuser",
		Email:    "user@example.com",
		Status:   models.UserStatusActive,
		RoleID:   role.ID,
		Role:     role,
	}
}

// --- audit sink fake ---

type fakeLogs struct {
	actions []string
}

func (f *fakeLogs) Record(actorID *int64, actionType, description string, targetType *string, targetID *int64) {
	f.actions = append(f.actions, actionType)
}

func (f *fakeLogs) ListLogs(skip, limit int64) ([]models.Log, error) { return nil, nil }

// --- book repository fake ---

type fakeBookRepo struct {
	books  map[int64]*models.Book
	subIDs map[int64][]int64
	nextID int64
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: map[int64]*models.Book{}, subIDs: map[int64][]int64{}}
}

func (f *fakeBookRepo) add(book models.Book) *models.Book {
	f.nextID++
	book.ID = f.nextID
	f.books[book.ID] = &book
	return &book
}

func (f *fakeBookRepo) CreateBook(_ repositories.SQLExecutor, book *models.Book) (int64, error) {
	created := f.add(*book)
	return created.ID, nil
}

func (f *fakeBookRepo) FindBookByID(bookID int64) (*models.Book, error) {
	book, ok := f.books[bookID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *book
	return &cp, nil
}

func (f *fakeBookRepo) ListBooks(filter repositories.BookFilter) ([]models.Book, error) {
	ids := make([]int64, 0, len(f.books))
	for id := range f.books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []models.Book
	for _, id := range ids {
		book := f.books[id]
		if filter.ApprovedOnly && !book.IsApproved {
			continue
		}
		out = append(out, *book)
	}
	return out, nil
}

func (f *fakeBookRepo) UpdateBook(_ repositories.SQLExecutor, book *models.Book) error {
	if _, ok := f.books[book.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *book
	f.books[book.ID] = &cp
	return nil
}

func (f *fakeBookRepo) SetApproval(_ repositories.SQLExecutor, bookID int64, approved bool) error {
	book, ok := f.books[bookID]
	if !ok {
		return repositories.ErrNotFound
	}
	book.IsApproved = approved
	return nil
}

func (f *fakeBookRepo) SetSubcategories(_ repositories.SQLExecutor, bookID int64, subcategoryIDs []int64) error {
	f.subIDs[bookID] = subcategoryIDs
	return nil
}

func (f *fakeBookRepo) SoftDeleteBook(_ repositories.SQLExecutor, bookID int64) error {
	if _, ok := f.books[bookID]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.books, bookID)
	return nil
}

func (f *fakeBookRepo) ISBNExists(isbn string, excludeBookID int64) (bool, error) {
	for _, book := range f.books {
		if book.ID != excludeBookID && book.ISBN != nil && *book.ISBN == isbn {
			return true, nil
		}
	}
	return false, nil
}

// --- access repository fake ---

type grantKey struct{ bookID, userID int64 }

type fakeAccessRepo struct {
	grants   map[grantKey]bool
	requests map[int64]*models.AccessRequest
	nextID   int64
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{grants: map[grantKey]bool{}, requests: map[int64]*models.AccessRequest{}}
}

func (f *fakeAccessRepo) CreateGrant(_ repositories.SQLExecutor, grant *models.BookPermission) (int64, error) {
	if grant.UserID != nil {
		f.grants[grantKey{grant.BookID, *grant.UserID}] = true
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeAccessRepo) HasGrant(bookID, userID int64) (bool, error) {
	return f.grants[grantKey{bookID, userID}], nil
}

func (f *fakeAccessRepo) GrantedBookIDs(userID int64) (map[int64]bool, error) {
	ids := make(map[int64]bool)
	for key := range f.grants {
		if key.userID == userID {
			ids[key.bookID] = true
		}
	}
	return ids, nil
}

func (f *fakeAccessRepo) CreateAccessRequest(_ repositories.SQLExecutor, req *models.AccessRequest) (int64, error) {
	f.nextID++
	cp := *req
	cp.ID = f.nextID
	cp.Status = models.AccessStatusPending
	cp.CreatedAt = time.Now()
	f.requests[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeAccessRepo) FindAccessRequestByID(requestID int64) (*models.AccessRequest, error) {
	req, ok := f.requests[requestID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeAccessRepo) FindAccessRequestByUserAndBook(userID, bookID int64) (*models.AccessRequest, error) {
	for _, req := range f.requests {
		if req.UserID == userID && req.BookID == bookID {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeAccessRepo) ResubmitAccessRequest(_ repositories.SQLExecutor, req *models.AccessRequest) error {
	existing, ok := f.requests[req.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	existing.Name = req.Name
	existing.Age = req.Age
	existing.Location = req.Location
	existing.Whatsapp = req.Whatsapp
	existing.Qualification = req.Qualification
	existing.Institution = req.Institution
	existing.Teachers = req.Teachers
	existing.Purpose = req.Purpose
	existing.PreviousWork = req.PreviousWork
	existing.Status = models.AccessStatusPending
	existing.RejectionReason = nil
	return nil
}

func (f *fakeAccessRepo) UpdateAccessRequestStatus(_ repositories.SQLExecutor, requestID int64, fromStatus, toStatus string, rejectionReason *string) error {
	req, ok := f.requests[requestID]
	if !ok || !strings.EqualFold(req.Status, fromStatus) {
		return repositories.ErrStaleUpdate
	}
	req.Status = toStatus
	req.RejectionReason = rejectionReason
	return nil
}

func (f *fakeAccessRepo) ApprovedBookIDs(userID int64) (map[int64]bool, error) {
	ids := make(map[int64]bool)
	for _, req := range f.requests {
		if req.UserID == userID && strings.EqualFold(req.Status, models.AccessStatusApproved) {
			ids[req.BookID] = true
		}
	}
	return ids, nil
}

func (f *fakeAccessRepo) ListAccessRequestsByUser(userID int64) ([]models.AccessRequest, error) {
	var out []models.AccessRequest
	for _, req := range f.requests {
		if req.UserID == userID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeAccessRepo) ListAccessRequests() ([]models.AccessRequest, error) {
	var out []models.AccessRequest
	for _, req := range f.requests {
		out = append(out, *req)
	}
	return out, nil
}

func (f *fakeAccessRepo) HasApprovedAccessRequest(userID, bookID int64) (bool, error) {
	for _, req := range f.requests {
		if req.UserID == userID && req.BookID == bookID && strings.EqualFold(req.Status, models.AccessStatusApproved) {
			return true, nil
		}
	}
	return false, nil
}

// --- request repository fake ---

type fakeRequestRepo struct {
	bookRequests   map[int64]*models.BookRequest
	uploadRequests map[int64]*models.UploadRequest
	nextID         int64
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{
		bookRequests:   map[int64]*models.BookRequest{},
		uploadRequests: map[int64]*models.UploadRequest{},
	}
}

func (f *fakeRequestRepo) CreateBookRequest(_ repositories.SQLExecutor, req *models.BookRequest) (int64, error) {
	f.nextID++
	cp := *req
	cp.ID = f.nextID
	cp.Status = models.ReviewStatusPending
	cp.CreatedAt = time.Now()
	f.bookRequests[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRequestRepo) FindBookRequestByID(requestID int64) (*models.BookRequest, error) {
	req, ok := f.bookRequests[requestID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRequestRepo) FindBookRequestByUserAndBook(userID, bookID int64) (*models.BookRequest, error) {
	for _, req := range f.bookRequests {
		if req.UserID == userID && req.BookID == bookID {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeRequestRepo) ResubmitBookRequest(_ repositories.SQLExecutor, req *models.BookRequest) error {
	existing, ok := f.bookRequests[req.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	existing.RequestReason = req.RequestReason
	existing.DeliveryAddress = req.DeliveryAddress
	existing.ContactNumber = req.ContactNumber
	existing.RequestedDays = req.RequestedDays
	existing.Status = models.ReviewStatusPending
	existing.RejectionReason = nil
	return nil
}

func (f *fakeRequestRepo) UpdateBookRequestStatus(_ repositories.SQLExecutor, requestID int64, fromStatus, toStatus string, rejectionReason *string) error {
	req, ok := f.bookRequests[requestID]
	if !ok || !strings.EqualFold(req.Status, fromStatus) {
		return repositories.ErrStaleUpdate
	}
	req.Status = toStatus
	req.RejectionReason = rejectionReason
	return nil
}

func (f *fakeRequestRepo) ListBookRequestsByUser(userID int64) ([]models.BookRequest, error) {
	var out []models.BookRequest
	for _, req := range f.bookRequests {
		if req.UserID == userID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListBookRequests(status string) ([]models.BookRequest, error) {
	var out []models.BookRequest
	for _, req := range f.bookRequests {
		if status == "" || strings.EqualFold(req.Status, status) {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) CreateUploadRequest(_ repositories.SQLExecutor, req *models.UploadRequest) (int64, error) {
	f.nextID++
	cp := *req
	cp.ID = f.nextID
	cp.Status = models.ReviewStatusPending
	cp.SubmittedAt = time.Now()
	f.uploadRequests[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRequestRepo) FindUploadRequestByID(requestID int64) (*models.UploadRequest, error) {
	req, ok := f.uploadRequests[requestID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRequestRepo) FindUploadRequestByBookID(bookID int64) (*models.UploadRequest, error) {
	for _, req := range f.uploadRequests {
		if req.BookID == bookID {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeRequestRepo) ResetUploadRequestToPending(_ repositories.SQLExecutor, bookID int64, submittedByID *int64) error {
	for _, req := range f.uploadRequests {
		if req.BookID == bookID {
			req.Status = models.ReviewStatusPending
			req.ReviewedByID = nil
			req.Remarks = nil
			req.ReviewedAt = nil
			if submittedByID != nil {
				req.SubmittedByID = submittedByID
			}
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeRequestRepo) ReviewUploadRequest(_ repositories.SQLExecutor, requestID int64, status string, remarks *string, reviewedByID int64) error {
	req, ok := f.uploadRequests[requestID]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	req.Status = status
	req.Remarks = remarks
	req.ReviewedByID = &reviewedByID
	req.ReviewedAt = &now
	return nil
}

func (f *fakeRequestRepo) ListUploadRequests(status string) ([]models.UploadRequest, error) {
	var out []models.UploadRequest
	for _, req := range f.uploadRequests {
		if status == "" || strings.EqualFold(req.Status, status) {
			out = append(out, *req)
		}
	}
	return out, nil
}

// --- role repository fake ---

type fakeRoleRepo struct {
	roles     map[int64]*models.Role
	perms     map[int64]*models.Permission
	rolePerms map[int64][]int64
	nextID    int64
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		roles:     map[int64]*models.Role{},
		perms:     map[int64]*models.Permission{},
		rolePerms: map[int64][]int64{},
	}
}

func (f *fakeRoleRepo) addRole(name string) *models.Role {
	f.nextID++
	role := &models.Role{ID: f.nextID, Name: name}
	f.roles[role.ID] = role
	return role
}

func (f *fakeRoleRepo) CreateRole(_ repositories.SQLExecutor, role *models.Role) (int64, error) {
	for _, existing := range f.roles {
		if strings.EqualFold(existing.Name, role.Name) {
			return 0, repositories.ErrDuplicateKey
		}
	}
	f.nextID++
	cp := *role
	cp.ID = f.nextID
	f.roles[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRoleRepo) FindRoleByID(roleID int64) (*models.Role, error) {
	role, ok := f.roles[roleID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *role
	return &cp, nil
}

func (f *fakeRoleRepo) FindRoleByName(name string) (*models.Role, error) {
	for _, role := range f.roles {
		if strings.EqualFold(role.Name, name) {
			cp := *role
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeRoleRepo) ListRoles() ([]models.Role, error) {
	var out []models.Role
	for _, role := range f.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (f *fakeRoleRepo) UpdateRole(_ repositories.SQLExecutor, role *models.Role) error {
	if _, ok := f.roles[role.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *role
	f.roles[role.ID] = &cp
	return nil
}

func (f *fakeRoleRepo) SoftDeleteRole(_ repositories.SQLExecutor, roleID int64) error {
	if _, ok := f.roles[roleID]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.roles, roleID)
	return nil
}

func (f *fakeRoleRepo) ReplaceRolePermissions(_ repositories.SQLExecutor, roleID int64, permissionIDs []int64) (int64, error) {
	f.rolePerms[roleID] = permissionIDs
	return int64(len(permissionIDs)), nil
}

func (f *fakeRoleRepo) CreatePermission(_ repositories.SQLExecutor, perm *models.Permission) (int64, error) {
	f.nextID++
	cp := *perm
	cp.ID = f.nextID
	f.perms[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRoleRepo) ListPermissions() ([]models.Permission, error) {
	var out []models.Permission
	for _, perm := range f.perms {
		out = append(out, *perm)
	}
	return out, nil
}

func (f *fakeRoleRepo) FindPermissionsByIDs(ids []int64) ([]models.Permission, error) {
	seen := map[int64]bool{}
	var out []models.Permission
	for _, id := range ids {
		if perm, ok := f.perms[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, *perm)
		}
	}
	return out, nil
}

// --- mailer fake ---

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

// --- user repository fake ---

type fakeUserRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*models.User{}}
}

func (f *fakeUserRepo) add(user *models.User) *models.User {
	if user.ID == 0 {
		f.nextID++
		user.ID = f.nextID
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeUserRepo) CreateUser(_ repositories.SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	cp := *user
	cp.PasswordHash = hashedPassword
	created := f.add(&cp)
	return created.ID, nil
}

func (f *fakeUserRepo) FindUserByUsername(username string) (*models.User, string, error) {
	for _, user := range f.users {
		if user.Username == username {
			cp := *user
			return &cp, user.PasswordHash, nil
		}
	}
	return nil, "", repositories.ErrNotFound
}

func (f *fakeUserRepo) FindUserByEmail(email string) (*models.User, string, error) {
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, user.PasswordHash, nil
		}
	}
	return nil, "", repositories.ErrNotFound
}

func (f *fakeUserRepo) FindUserByID(userID int64) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserRepo) ListUsers(skip, limit int64) ([]models.User, error) {
	var out []models.User
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateUser(_ repositories.SQLExecutor, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ repositories.SQLExecutor, userID int64, hashedPassword string) error {
	user, ok := f.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.PasswordHash = hashedPassword
	return nil
}

func (f *fakeUserRepo) SetOTP(_ repositories.SQLExecutor, userID int64, code string, expiresAt time.Time) error {
	user, ok := f.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.OTPCode = &code
	user.OTPExpiresAt = &expiresAt
	return nil
}

func (f *fakeUserRepo) ClearOTP(_ repositories.SQLExecutor, userID int64) error {
	user, ok := f.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.OTPCode = nil
	user.OTPExpiresAt = nil
	return nil
}

func (f *fakeUserRepo) SoftDeleteUser(_ repositories.SQLExecutor, userID int64) error {
	if _, ok := f.users[userID]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeUserRepo) UsernameExists(username string) (bool, error) {
	for _, user := range f.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}
