package services

import (
	"testing"

	"booknest_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accessServiceFixture struct {
	svc         AccessService
	accessRepo  *fakeAccessRepo
	requestRepo *fakeRequestRepo
	bookRepo    *fakeBookRepo
	logs        *fakeLogs
	mock        sqlmock.Sqlmock
}

func newAccessServiceFixture(t *testing.T) *accessServiceFixture {
	t.Helper()
	db, mock := newStubDB(t)
	f := &accessServiceFixture{
		accessRepo:  newFakeAccessRepo(),
		requestRepo: newFakeRequestRepo(),
		bookRepo:    newFakeBookRepo(),
		logs:        &fakeLogs{},
		mock:        mock,
	}
	f.svc = NewAccessService(f.accessRepo, f.requestRepo, f.bookRepo, f.logs, db)
	return f
}

func accessInput(bookID int64) AccessRequestInput {
	return AccessRequestInput{BookID: bookID, Name: "Reader", Whatsapp: "+100200300"}
}

func TestSubmitAccessRequest(t *testing.T) {
	member := userWithRole(1, models.RoleMember)

	t.Run("first submission creates a pending request", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})

		req, err := f.svc.SubmitAccessRequest(accessInput(book.ID), member)
		require.NoError(t, err)
		assert.Equal(t, models.AccessStatusPending, req.Status)
		assert.Equal(t, member.ID, req.UserID)
	})

	t.Run("a pending request blocks resubmission", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})

		_, err := f.svc.SubmitAccessRequest(accessInput(book.ID), member)
		require.NoError(t, err)

		_, err = f.svc.SubmitAccessRequest(accessInput(book.ID), member)
		assert.ErrorIs(t, err, ErrRequestAlreadyPending)
	})

	t.Run("resubmission after rejection reuses the row and clears the verdict", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})

		first, err := f.svc.SubmitAccessRequest(accessInput(book.ID), member)
		require.NoError(t, err)

		reason := "incomplete application"
		f.accessRepo.requests[first.ID].Status = models.AccessStatusRejected
		f.accessRepo.requests[first.ID].RejectionReason = &reason

		input := accessInput(book.ID)
		input.Name = "Reader, revised"
		second, err := f.svc.SubmitAccessRequest(input, member)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.AccessStatusPending, second.Status)
		assert.Nil(t, second.RejectionReason)
		assert.Equal(t, "Reader, revised", second.Name)
	})

	t.Run("unknown book", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, err := f.svc.SubmitAccessRequest(accessInput(404), member)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestCheckAccessStatus(t *testing.T) {
	member := userWithRole(1, models.RoleMember)

	t.Run("no request on record", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})

		status, err := f.svc.CheckAccessStatus(book.ID, member)
		require.NoError(t, err)
		assert.Equal(t, "not_requested", status.Status)
		assert.False(t, status.HasAccess)
	})

	t.Run("direct grant confers access without a request", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})
		f.accessRepo.grants[grantKey{book.ID, member.ID}] = true

		status, err := f.svc.CheckAccessStatus(book.ID, member)
		require.NoError(t, err)
		assert.Equal(t, "not_requested", status.Status)
		assert.True(t, status.HasAccess)
	})

	t.Run("pending request has no access yet", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})
		_, err := f.svc.SubmitAccessRequest(accessInput(book.ID), member)
		require.NoError(t, err)

		status, err := f.svc.CheckAccessStatus(book.ID, member)
		require.NoError(t, err)
		assert.Equal(t, "pending", status.Status)
		assert.False(t, status.HasAccess)
	})

	t.Run("approved request confers access", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})
		req, err := f.svc.SubmitAccessRequest(accessInput(book.ID), member)
		require.NoError(t, err)
		f.accessRepo.requests[req.ID].Status = models.AccessStatusApproved

		status, err := f.svc.CheckAccessStatus(book.ID, member)
		require.NoError(t, err)
		assert.Equal(t, "approved", status.Status)
		assert.True(t, status.HasAccess)
	})

	t.Run("rejection surfaces the reason", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})
		req, err := f.svc.SubmitAccessRequest(accessInput(book.ID), member)
		require.NoError(t, err)
		reason := "institution could not be verified"
		f.accessRepo.requests[req.ID].Status = models.AccessStatusRejected
		f.accessRepo.requests[req.ID].RejectionReason = &reason

		status, err := f.svc.CheckAccessStatus(book.ID, member)
		require.NoError(t, err)
		assert.Equal(t, "rejected", status.Status)
		assert.False(t, status.HasAccess)
		require.NotNil(t, status.RejectionReason)
		assert.Equal(t, reason, *status.RejectionReason)
	})
}

// staleAccessRepo reports a stale status from FindAccessRequestByID, simulating
// a second reviewer landing between the read and the guarded update.
type staleAccessRepo struct {
	*fakeAccessRepo
}

func (s *staleAccessRepo) FindAccessRequestByID(requestID int64) (*models.AccessRequest, error) {
	req, err := s.fakeAccessRepo.FindAccessRequestByID(requestID)
	if err == nil {
		req.Status = models.AccessStatusPending
	}
	return req, err
}

func TestReviewAccessRequest(t *testing.T) {
	member := userWithRole(1, models.RoleMember)
	admin := userWithRole(2, models.RoleAdmin)

	submit := func(t *testing.T, f *accessServiceFixture) (*models.Book, *models.AccessRequest) {
		t.Helper()
		book := f.bookRepo.add(models.Book{Title: "Sealed", IsApproved: true, IsRestricted: true})
		req, err := f.svc.SubmitAccessRequest(accessInput(book.ID), member)
		require.NoError(t, err)
		return book, req
	}

	t.Run("approve", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, req := submit(t, f)

		reviewed, err := f.svc.ReviewAccessRequest(req.ID, ReviewInput{Action: "approve"}, admin)
		require.NoError(t, err)
		assert.Equal(t, models.AccessStatusApproved, reviewed.Status)
	})

	t.Run("reject stores the reason", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, req := submit(t, f)

		reason := "purpose unclear"
		reviewed, err := f.svc.ReviewAccessRequest(req.ID, ReviewInput{Action: "reject", Reason: &reason}, admin)
		require.NoError(t, err)
		assert.Equal(t, models.AccessStatusRejected, reviewed.Status)
		require.NotNil(t, reviewed.RejectionReason)
		assert.Equal(t, reason, *reviewed.RejectionReason)
	})

	t.Run("reject without a reason records the default", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, req := submit(t, f)

		reviewed, err := f.svc.ReviewAccessRequest(req.ID, ReviewInput{Action: "reject"}, admin)
		require.NoError(t, err)
		assert.Equal(t, models.AccessStatusRejected, reviewed.Status)
		require.NotNil(t, reviewed.RejectionReason)
		assert.Equal(t, "No reason provided.", *reviewed.RejectionReason)
	})

	t.Run("pending pushes a reviewed request back to the queue", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, req := submit(t, f)

		reason := "purpose unclear"
		_, err := f.svc.ReviewAccessRequest(req.ID, ReviewInput{Action: "reject", Reason: &reason}, admin)
		require.NoError(t, err)

		reviewed, err := f.svc.ReviewAccessRequest(req.ID, ReviewInput{Action: "pending"}, admin)
		require.NoError(t, err)
		assert.Equal(t, models.AccessStatusPending, reviewed.Status)
		assert.Nil(t, reviewed.RejectionReason)
	})

	t.Run("invalid action", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, req := submit(t, f)

		_, err := f.svc.ReviewAccessRequest(req.ID, ReviewInput{Action: "escalate"}, admin)
		assert.ErrorIs(t, err, ErrInvalidReviewAction)
	})

	t.Run("missing request", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, err := f.svc.ReviewAccessRequest(404, ReviewInput{Action: "approve"}, admin)
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})

	t.Run("concurrent review loses with a conflict", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, req := submit(t, f)
		// The other reviewer already approved it, but this reviewer still sees
		// the request as pending.
		f.accessRepo.requests[req.ID].Status = models.AccessStatusApproved

		db, _ := newStubDB(t)
		stale := &staleAccessRepo{f.accessRepo}
		svc := NewAccessService(stale, f.requestRepo, f.bookRepo, f.logs, db)

		_, err := svc.ReviewAccessRequest(req.ID, ReviewInput{Action: "reject"}, admin)
		assert.ErrorIs(t, err, ErrReviewConflict)
		// The winning verdict is untouched.
		assert.Equal(t, models.AccessStatusApproved, f.accessRepo.requests[req.ID].Status)
	})
}

func TestSubmitBookRequest(t *testing.T) {
	member := userWithRole(1, models.RoleMember)

	input := func(bookID int64) BookRequestInput {
		return BookRequestInput{BookID: bookID, RequestReason: "research", DeliveryAddress: "12 Library Lane"}
	}

	t.Run("defaults the loan period", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Paper", IsApproved: true})

		req, err := f.svc.SubmitBookRequest(input(book.ID), member)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusPending, req.Status)
		assert.Equal(t, int64(14), req.RequestedDays)
	})

	t.Run("pending request blocks resubmission", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Paper", IsApproved: true})

		_, err := f.svc.SubmitBookRequest(input(book.ID), member)
		require.NoError(t, err)
		_, err = f.svc.SubmitBookRequest(input(book.ID), member)
		assert.ErrorIs(t, err, ErrRequestAlreadyPending)
	})

	t.Run("resubmission after rejection resets the same row", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Paper", IsApproved: true})

		first, err := f.svc.SubmitBookRequest(input(book.ID), member)
		require.NoError(t, err)
		reason := "out of stock"
		f.requestRepo.bookRequests[first.ID].Status = models.ReviewStatusRejected
		f.requestRepo.bookRequests[first.ID].RejectionReason = &reason

		again := input(book.ID)
		again.RequestedDays = 30
		second, err := f.svc.SubmitBookRequest(again, member)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.ReviewStatusPending, second.Status)
		assert.Nil(t, second.RejectionReason)
		assert.Equal(t, int64(30), second.RequestedDays)
	})
}

func TestSubmitUploadRequest(t *testing.T) {
	librarian := userWithRole(3, "Librarian", models.PermRequestCreate)

	t.Run("first submission queues the book", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Draft", IsApproved: false})

		req, err := f.svc.SubmitUploadRequest(UploadRequestInput{BookID: book.ID}, librarian)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusPending, req.Status)
		require.NotNil(t, req.SubmittedByID)
		assert.Equal(t, librarian.ID, *req.SubmittedByID)
	})

	t.Run("a pending request blocks resubmission", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Draft", IsApproved: false})

		_, err := f.svc.SubmitUploadRequest(UploadRequestInput{BookID: book.ID}, librarian)
		require.NoError(t, err)

		_, err = f.svc.SubmitUploadRequest(UploadRequestInput{BookID: book.ID}, librarian)
		assert.ErrorIs(t, err, ErrRequestAlreadyPending)
	})

	t.Run("a reviewed request is reset in place", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book := f.bookRepo.add(models.Book{Title: "Draft", IsApproved: false})

		first, err := f.svc.SubmitUploadRequest(UploadRequestInput{BookID: book.ID}, librarian)
		require.NoError(t, err)
		remarks := "cover image missing"
		require.NoError(t, f.requestRepo.ReviewUploadRequest(nil, first.ID, models.ReviewStatusRejected, &remarks, 2))

		second, err := f.svc.SubmitUploadRequest(UploadRequestInput{BookID: book.ID}, librarian)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.ReviewStatusPending, second.Status)
		assert.Nil(t, second.Remarks)
		assert.Nil(t, second.ReviewedByID)
	})

	t.Run("unknown book", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, err := f.svc.SubmitUploadRequest(UploadRequestInput{BookID: 404}, librarian)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestReviewUploadRequest(t *testing.T) {
	admin := userWithRole(2, models.RoleAdmin)

	seed := func(t *testing.T, f *accessServiceFixture) (*models.Book, int64) {
		t.Helper()
		book := f.bookRepo.add(models.Book{Title: "Draft", IsApproved: false})
		id, err := f.requestRepo.CreateUploadRequest(nil, &models.UploadRequest{BookID: book.ID})
		require.NoError(t, err)
		return book, id
	}

	t.Run("approval publishes the book", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book, uploadID := seed(t, f)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		reviewed, err := f.svc.ReviewUploadRequest(uploadID, ReviewInput{Action: "approve"}, admin)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusApproved, reviewed.Status)
		require.NotNil(t, reviewed.ReviewedByID)
		assert.Equal(t, admin.ID, *reviewed.ReviewedByID)

		refreshed, err := f.bookRepo.FindBookByID(book.ID)
		require.NoError(t, err)
		assert.True(t, refreshed.IsApproved)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("rejection keeps the book out of the catalog", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book, uploadID := seed(t, f)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		remarks := "cover image missing"
		reviewed, err := f.svc.ReviewUploadRequest(uploadID, ReviewInput{Action: "reject", Reason: &remarks}, admin)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatusRejected, reviewed.Status)
		require.NotNil(t, reviewed.Remarks)
		assert.Equal(t, remarks, *reviewed.Remarks)

		refreshed, err := f.bookRepo.FindBookByID(book.ID)
		require.NoError(t, err)
		assert.False(t, refreshed.IsApproved)
	})

	t.Run("repeating the same verdict leaves the same end state", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book, uploadID := seed(t, f)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		_, err := f.svc.ReviewUploadRequest(uploadID, ReviewInput{Action: "approve"}, admin)
		require.NoError(t, err)
		reviewed, err := f.svc.ReviewUploadRequest(uploadID, ReviewInput{Action: "approve"}, admin)
		require.NoError(t, err)

		assert.Equal(t, models.ReviewStatusApproved, reviewed.Status)
		refreshed, err := f.bookRepo.FindBookByID(book.ID)
		require.NoError(t, err)
		assert.True(t, refreshed.IsApproved)
	})

	t.Run("a re-review can reverse the verdict", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book, uploadID := seed(t, f)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		_, err := f.svc.ReviewUploadRequest(uploadID, ReviewInput{Action: "approve"}, admin)
		require.NoError(t, err)
		_, err = f.svc.ReviewUploadRequest(uploadID, ReviewInput{Action: "reject"}, admin)
		require.NoError(t, err)

		refreshed, err := f.bookRepo.FindBookByID(book.ID)
		require.NoError(t, err)
		assert.False(t, refreshed.IsApproved)
	})

	t.Run("pending re-queues the request and unpublishes the book", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		book, uploadID := seed(t, f)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		_, err := f.svc.ReviewUploadRequest(uploadID, ReviewInput{Action: "approve"}, admin)
		require.NoError(t, err)
		reviewed, err := f.svc.ReviewUploadRequest(uploadID, ReviewInput{Action: "pending"}, admin)
		require.NoError(t, err)

		assert.Equal(t, models.ReviewStatusPending, reviewed.Status)
		assert.Nil(t, reviewed.ReviewedByID)
		refreshed, err := f.bookRepo.FindBookByID(book.ID)
		require.NoError(t, err)
		assert.False(t, refreshed.IsApproved)
	})

	t.Run("missing request", func(t *testing.T) {
		f := newAccessServiceFixture(t)
		_, err := f.svc.ReviewUploadRequest(404, ReviewInput{Action: "approve"}, admin)
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})
}
