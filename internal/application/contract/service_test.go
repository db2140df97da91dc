package contract

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	domain "github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/testutil"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

type mockDocuments struct {
	mock.Mock
}

func (m *mockDocuments) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectKey, expiry)
	return args.String(0), args.Error(1)
}

type ContractServiceSuite struct {
	suite.Suite
	ctx        context.Context
	repo       *testutil.MemoryContractRepo
	categories *testutil.MemoryCategoryRepo
	docs       *mockDocuments
	svc        *Service

	admin  access.Subject
	alice  access.Subject
	bob    access.Subject
	viewer access.Subject
}

func TestContractServiceSuite(t *testing.T) {
	suite.Run(t, new(ContractServiceSuite))
}

func (s *ContractServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = testutil.NewMemoryContractRepo()
	s.categories = testutil.NewMemoryCategoryRepo()
	s.docs = &mockDocuments{}
	s.svc = NewService(s.repo, s.categories, s.docs, testutil.NewMockLogger())
	s.svc.now = func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }

	s.admin = access.Subject{UserID: "root", Admin: true}
	s.alice = access.Subject{UserID: "alice", Editor: true}
	s.bob = access.Subject{UserID: "bob", Editor: true}
	s.viewer = access.Subject{UserID: "vic", Viewer: true}
}

func input() Input {
	start := time.Date(2025, 7, 1, 15, 30, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 23, 0, 0, 0, time.UTC)
	return Input{
		Name:               " Office 365 ",
		Vendor:             "Microsoft",
		StartDate:          &start,
		EndDate:            &end,
		CancellationPeriod: "3 months",
		ContractType:       domain.TypeAutoRenewal,
		ReminderEnabled:    true,
	}
}

func (s *ContractServiceSuite) create(subject access.Subject, mutate func(*Input)) *domain.Contract {
	in := input()
	if mutate != nil {
		mutate(&in)
	}
	c, err := s.svc.Create(s.ctx, subject, in)
	s.Require().NoError(err)
	return c
}

func (s *ContractServiceSuite) TestCreate_AppliesDefaults() {
	c := s.create(s.alice, nil)
	s.Equal("Office 365", c.Name)
	s.Equal(domain.StatusActive, c.Status)
	s.Equal(domain.DefaultCurrency, c.Currency)
	s.Equal("alice", c.CreatedBy)
	s.Equal(domain.Date(2026, 6, 30), *c.EndDate, "dates are civil")
	s.NotZero(c.ID)
	s.Equal(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC), c.CreatedAt)
}

func (s *ContractServiceSuite) TestCreate_RequiresEditor() {
	_, err := s.svc.Create(s.ctx, s.viewer, input())
	s.True(errors.IsForbidden(err))
	s.Equal(0, s.repo.Len())
}

func (s *ContractServiceSuite) TestCreate_Validation() {
	in := input()
	in.Name = ""
	in.CancellationPeriod = "quarterly"
	_, err := s.svc.Create(s.ctx, s.alice, in)
	s.Require().Error(err)
	fields := errors.FieldsOf(err)
	s.Contains(fields, "name")
	s.Contains(fields, "cancellationPeriod")
}

func (s *ContractServiceSuite) TestCreate_UnknownCategory() {
	missing := int64(99)
	in := input()
	in.CategoryID = &missing
	_, err := s.svc.Create(s.ctx, s.alice, in)
	s.True(errors.IsValidation(err))
	s.Contains(errors.FieldsOf(err), "categoryId")
}

func (s *ContractServiceSuite) TestGet_PrivateVisibility() {
	c := s.create(s.alice, func(in *Input) { in.IsPrivate = true })

	_, err := s.svc.Get(s.ctx, s.bob, c.ID)
	s.True(errors.IsForbidden(err))

	got, err := s.svc.Get(s.ctx, s.alice, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)

	_, err = s.svc.Get(s.ctx, s.admin, c.ID)
	s.NoError(err)
}

func (s *ContractServiceSuite) TestList_VisibilityAndArchive() {
	s.create(s.alice, func(in *Input) { in.IsPrivate = true })
	public := s.create(s.bob, func(in *Input) { in.Name = "Telekom" })
	_, err := s.svc.Archive(s.ctx, s.bob, public.ID)
	s.Require().NoError(err)
	s.create(s.bob, func(in *Input) { in.Name = "Insurance" })

	bobs, err := s.svc.List(s.ctx, s.bob, Query{})
	s.Require().NoError(err)
	s.Len(bobs, 1)
	s.Equal("Insurance", bobs[0].Name)

	admins, err := s.svc.List(s.ctx, s.admin, Query{})
	s.Require().NoError(err)
	s.Len(admins, 2)

	archived, err := s.svc.List(s.ctx, s.viewer, Query{Archived: true})
	s.Require().NoError(err)
	s.Require().Len(archived, 1)
	s.Equal("Telekom", archived[0].Name)

	found, err := s.svc.List(s.ctx, s.admin, Query{Search: "insur"})
	s.Require().NoError(err)
	s.Len(found, 1)
}

func (s *ContractServiceSuite) TestUpdate() {
	c := s.create(s.alice, nil)
	in := input()
	in.Name = "Office 365 E5"
	in.Status = domain.StatusCancelled

	updated, err := s.svc.Update(s.ctx, s.bob, c.ID, in)
	s.Require().NoError(err)
	s.Equal("Office 365 E5", updated.Name)
	s.Equal(domain.StatusCancelled, updated.Status)
	s.Equal("alice", updated.CreatedBy)

	_, err = s.svc.Update(s.ctx, s.viewer, c.ID, in)
	s.True(errors.IsForbidden(err))
}

func (s *ContractServiceSuite) TestUpdate_PrivacyOwnerOnly() {
	c := s.create(s.alice, nil)
	in := input()
	in.IsPrivate = true

	_, err := s.svc.Update(s.ctx, s.bob, c.ID, in)
	s.True(errors.IsForbidden(err))

	updated, err := s.svc.Update(s.ctx, s.alice, c.ID, in)
	s.Require().NoError(err)
	s.True(updated.IsPrivate)
}

func (s *ContractServiceSuite) TestArchiveUnarchive() {
	c := s.create(s.alice, nil)
	archived, err := s.svc.Archive(s.ctx, s.alice, c.ID)
	s.Require().NoError(err)
	s.True(archived.Archived)

	_, err = s.svc.Unarchive(s.ctx, s.viewer, c.ID)
	s.True(errors.IsForbidden(err))

	restored, err := s.svc.Unarchive(s.ctx, s.alice, c.ID)
	s.Require().NoError(err)
	s.False(restored.Archived)
}

func (s *ContractServiceSuite) TestDocumentURL() {
	key := "contracts/office365.pdf"
	c := s.create(s.alice, func(in *Input) { in.MainDocument = &key })
	s.docs.On("PresignedURL", mock.Anything, key, DefaultDocumentURLExpiry).
		Return("https://minio.local/contracts/office365.pdf?X-Amz-Signature=abc", nil).Once()

	url, err := s.svc.DocumentURL(s.ctx, s.viewer, c.ID)
	s.Require().NoError(err)
	s.Contains(url, "X-Amz-Signature")
	s.docs.AssertExpectations(s.T())
}

func (s *ContractServiceSuite) TestDocumentURL_Errors() {
	none := s.create(s.alice, nil)
	_, err := s.svc.DocumentURL(s.ctx, s.alice, none.ID)
	s.True(errors.IsCode(err, errors.ErrCodeDocumentUnavailable))

	key := "contracts/broken.pdf"
	c := s.create(s.alice, func(in *Input) { in.MainDocument = &key })
	s.docs.On("PresignedURL", mock.Anything, key, mock.Anything).Return("", stderrors.New("no such bucket"))
	_, err = s.svc.DocumentURL(s.ctx, s.alice, c.ID)
	s.True(errors.IsCode(err, errors.CodeStorageError))

	noStore := NewService(s.repo, s.categories, nil, testutil.NewMockLogger())
	_, err = noStore.DocumentURL(s.ctx, s.alice, c.ID)
	s.True(errors.IsCode(err, errors.ErrCodeFeatureDisabled))
}

//Personal.AI order the ending
