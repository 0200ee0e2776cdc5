package services

import (
	"testing"

	"booknest_backend/internal/models"
	"booknest_backend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookServiceFixture struct {
	svc         BookService
	bookRepo    *fakeBookRepo
	accessRepo  *fakeAccessRepo
	requestRepo *fakeRequestRepo
	userRepo    *fakeUserRepo
	logs        *fakeLogs
	mock        sqlmock.Sqlmock
}

func newBookServiceFixture(t *testing.T) *bookServiceFixture {
	t.Helper()
	db, mock := newStubDB(t)
	f := &bookServiceFixture{
		bookRepo:    newFakeBookRepo(),
		accessRepo:  newFakeAccessRepo(),
		requestRepo: newFakeRequestRepo(),
		userRepo:    newFakeUserRepo(),
		logs:        &fakeLogs{},
		mock:        mock,
	}
	authz := NewAuthzService(f.userRepo, nil)
	f.svc = NewBookService(f.bookRepo, f.accessRepo, f.requestRepo, f.userRepo, authz, f.logs, db)
	return f
}

func TestBookServiceGetBook(t *testing.T) {
	member := userWithRole(1, models.RoleMember)
	admin := userWithRole(2, models.RoleAdmin)

	t.Run("open approved book is visible to anonymous callers", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Open Book", IsApproved: true})

		book, err := f.svc.GetBook(seeded.ID, nil)
		require.NoError(t, err)
		assert.True(t, book.UserHasAccess)
	})

	t.Run("unapproved book reads as not found for members", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Draft", IsApproved: false})

		_, err := f.svc.GetBook(seeded.ID, member)
		assert.ErrorIs(t, err, ErrBookNotFound)

		_, err = f.svc.GetBook(seeded.ID, nil)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("unapproved book is visible to admins", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Draft", IsApproved: false})

		book, err := f.svc.GetBook(seeded.ID, admin)
		require.NoError(t, err)
		assert.True(t, book.UserHasAccess)
	})

	t.Run("restricted book denies members without an access path", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})

		_, err := f.svc.GetBook(seeded.ID, member)
		assert.ErrorIs(t, err, ErrBookAccessDenied)
	})

	t.Run("restricted book denies anonymous callers", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})

		_, err := f.svc.GetBook(seeded.ID, nil)
		assert.ErrorIs(t, err, ErrBookAccessDenied)
	})

	t.Run("direct grant unlocks a restricted book", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})
		f.accessRepo.grants[grantKey{seeded.ID, member.ID}] = true

		book, err := f.svc.GetBook(seeded.ID, member)
		require.NoError(t, err)
		assert.True(t, book.UserHasAccess)
	})

	t.Run("approved access request unlocks a restricted book", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})
		id, err := f.accessRepo.CreateAccessRequest(nil, &models.AccessRequest{UserID: member.ID, BookID: seeded.ID, Name: "M", Whatsapp: "123"})
		require.NoError(t, err)
		f.accessRepo.requests[id].Status = models.AccessStatusApproved

		book, err := f.svc.GetBook(seeded.ID, member)
		require.NoError(t, err)
		assert.True(t, book.UserHasAccess)
	})

	t.Run("admins bypass restriction", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})

		book, err := f.svc.GetBook(seeded.ID, admin)
		require.NoError(t, err)
		assert.True(t, book.UserHasAccess)
	})

	t.Run("missing book", func(t *testing.T) {
		f := newBookServiceFixture(t)
		_, err := f.svc.GetBook(999, admin)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestBookServiceListBooks(t *testing.T) {
	member := userWithRole(1, models.RoleMember)
	admin := userWithRole(2, models.RoleSuperAdmin)

	seed := func(f *bookServiceFixture) (open, granted, approvedReq, locked, draft *models.Book) {
		open = f.bookRepo.add(models.Book{Title: "Open", IsApproved: true})
		granted = f.bookRepo.add(models.Book{Title: "Granted", IsApproved: true, IsRestricted: true})
		approvedReq = f.bookRepo.add(models.Book{Title: "Approved Request", IsApproved: true, IsRestricted: true})
		locked = f.bookRepo.add(models.Book{Title: "Locked", IsApproved: true, IsRestricted: true})
		draft = f.bookRepo.add(models.Book{Title: "Draft", IsApproved: false})

		f.accessRepo.grants[grantKey{granted.ID, member.ID}] = true
		id, err := f.accessRepo.CreateAccessRequest(nil, &models.AccessRequest{UserID: member.ID, BookID: approvedReq.ID, Name: "M", Whatsapp: "123"})
		require.NoError(t, err)
		f.accessRepo.requests[id].Status = models.AccessStatusApproved
		return
	}

	t.Run("member sees approved books with per-book access flags", func(t *testing.T) {
		f := newBookServiceFixture(t)
		open, granted, approvedReq, locked, _ := seed(f)

		books, err := f.svc.ListBooks(repositories.BookFilter{}, member)
		require.NoError(t, err)
		require.Len(t, books, 4) // the draft is filtered out

		access := map[int64]bool{}
		for _, b := range books {
			access[b.ID] = b.UserHasAccess
		}
		assert.True(t, access[open.ID])
		assert.True(t, access[granted.ID])
		assert.True(t, access[approvedReq.ID])
		assert.False(t, access[locked.ID])
	})

	t.Run("anonymous callers see approved books, restricted ones locked", func(t *testing.T) {
		f := newBookServiceFixture(t)
		open, granted, approvedReq, locked, _ := seed(f)

		books, err := f.svc.ListBooks(repositories.BookFilter{}, nil)
		require.NoError(t, err)
		require.Len(t, books, 4)

		access := map[int64]bool{}
		for _, b := range books {
			access[b.ID] = b.UserHasAccess
		}
		assert.True(t, access[open.ID])
		assert.False(t, access[granted.ID])
		assert.False(t, access[approvedReq.ID])
		assert.False(t, access[locked.ID])
	})

	t.Run("admins see everything including drafts", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seed(f)

		books, err := f.svc.ListBooks(repositories.BookFilter{}, admin)
		require.NoError(t, err)
		require.Len(t, books, 5)
		for _, b := range books {
			assert.True(t, b.UserHasAccess, "admin should have access to %q", b.Title)
		}
	})
}

func TestBookServiceCreateBook(t *testing.T) {
	admin := userWithRole(2, models.RoleAdmin)

	t.Run("new book starts unapproved with a pending review", func(t *testing.T) {
		f := newBookServiceFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		book, err := f.svc.CreateBook(BookInput{Title: "New Arrival", IsRestricted: true}, admin)
		require.NoError(t, err)
		assert.False(t, book.IsApproved)
		assert.True(t, book.IsRestricted)

		upload, err := f.requestRepo.FindUploadRequestByBookID(book.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusPending, upload.Status)
		require.NotNil(t, upload.SubmittedByID)
		assert.Equal(t, admin.ID, *upload.SubmittedByID)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("title is required", func(t *testing.T) {
		f := newBookServiceFixture(t)
		_, err := f.svc.CreateBook(BookInput{}, admin)
		assert.ErrorIs(t, err, ErrTitleRequired)
	})

	t.Run("duplicate ISBN is rejected", func(t *testing.T) {
		f := newBookServiceFixture(t)
		isbn := "978-0-123456-47-2"
		f.bookRepo.add(models.Book{Title: "Existing", ISBN: &isbn, IsApproved: true})

		_, err := f.svc.CreateBook(BookInput{Title: "Copycat", ISBN: &isbn}, admin)
		assert.ErrorIs(t, err, ErrDuplicateISBN)
	})
}

func TestBookServiceUpdateBook(t *testing.T) {
	admin := userWithRole(2, models.RoleAdmin)

	t.Run("editing pulls the book back out of the approved catalog", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Published", IsApproved: true})
		remarks := "looks good"
		reviewer := int64(9)
		uploadID, err := f.requestRepo.CreateUploadRequest(nil, &models.UploadRequest{BookID: seeded.ID})
		require.NoError(t, err)
		f.requestRepo.uploadRequests[uploadID].Status = models.ReviewStatusApproved
		f.requestRepo.uploadRequests[uploadID].Remarks = &remarks
		f.requestRepo.uploadRequests[uploadID].ReviewedByID = &reviewer

		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		book, err := f.svc.UpdateBook(seeded.ID, BookInput{Title: "Published, 2nd ed."}, admin)
		require.NoError(t, err)
		assert.False(t, book.IsApproved)
		assert.Equal(t, "Published, 2nd ed.", book.Title)

		upload, err := f.requestRepo.FindUploadRequestByID(uploadID)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusPending, upload.Status)
		assert.Nil(t, upload.Remarks)
		assert.Nil(t, upload.ReviewedByID)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("edit without an existing review queues a fresh one", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Legacy", IsApproved: true})

		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		_, err := f.svc.UpdateBook(seeded.ID, BookInput{Title: "Legacy"}, admin)
		require.NoError(t, err)

		upload, err := f.requestRepo.FindUploadRequestByBookID(seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusPending, upload.Status)
	})

	t.Run("missing book", func(t *testing.T) {
		f := newBookServiceFixture(t)
		_, err := f.svc.UpdateBook(404, BookInput{Title: "Ghost"}, admin)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestBookServiceGrantBookAccess(t *testing.T) {
	admin := userWithRole(2, models.RoleAdmin)

	t.Run("grant creates a direct access path", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})
		target := f.userRepo.add(userWithRole(7, models.RoleMember))

		require.NoError(t, f.svc.GrantBookAccess(seeded.ID, target.ID, admin))

		ok, err := f.accessRepo.HasGrant(seeded.ID, target.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown book", func(t *testing.T) {
		f := newBookServiceFixture(t)
		target := f.userRepo.add(userWithRole(7, models.RoleMember))
		assert.ErrorIs(t, f.svc.GrantBookAccess(404, target.ID, admin), ErrBookNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newBookServiceFixture(t)
		seeded := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true})
		assert.ErrorIs(t, f.svc.GrantBookAccess(seeded.ID, 404, admin), ErrUserNotFound)
	})
}
