package category

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	"github.com/turtacn/ContractKeeper/internal/testutil"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

var editor = access.Subject{UserID: "ed", Editor: true}

func names(cs []*contract.Category) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func TestList_SeedsDefaultsOnce(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMemoryCategoryRepo()
	logger := testutil.NewMockLogger()
	svc := NewService(repo, logger)

	first, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, contract.DefaultCategories, names(first))
	assert.Equal(t, 1, first[0].SortOrder)

	second, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, second, len(contract.DefaultCategories))
	assert.Len(t, logger.MessagesAt("info"), 1)
}

func TestList_NoSeedWhenPopulated(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewMemoryCategoryRepo()
	require.NoError(t, repo.Save(ctx, &contract.Category{Name: "Hosting", SortOrder: 1}))

	all, err := NewService(repo, testutil.NewMockLogger()).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hosting"}, names(all))
}

func TestCreate_AppendsAfterMax(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewMemoryCategoryRepo(), testutil.NewMockLogger())
	_, err := svc.List(ctx)
	require.NoError(t, err)

	c, err := svc.Create(ctx, editor, "  Hosting ")
	require.NoError(t, err)
	assert.Equal(t, "Hosting", c.Name)
	assert.Equal(t, len(contract.DefaultCategories)+1, c.SortOrder)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hosting", all[len(all)-1].Name)
}

func TestCreate_Errors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewMemoryCategoryRepo(), testutil.NewMockLogger())

	_, err := svc.Create(ctx, access.Subject{UserID: "v", Viewer: true}, "X")
	assert.True(t, errors.IsForbidden(err))

	_, err = svc.Create(ctx, editor, " ")
	assert.True(t, errors.IsValidation(err))

	_, err = svc.Create(ctx, editor, "Hosting")
	require.NoError(t, err)
	_, err = svc.Create(ctx, editor, "Hosting")
	assert.True(t, errors.IsConflict(err))
}

func TestRenameAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewMemoryCategoryRepo(), testutil.NewMockLogger())
	a, err := svc.Create(ctx, editor, "A")
	require.NoError(t, err)
	_, err = svc.Create(ctx, editor, "B")
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, editor, a.ID, "C")
	require.NoError(t, err)
	assert.Equal(t, "C", renamed.Name)

	_, err = svc.Rename(ctx, editor, a.ID, "B")
	assert.True(t, errors.IsConflict(err))

	require.NoError(t, svc.Delete(ctx, editor, a.ID))
	_, err = svc.Get(ctx, a.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCategoryNotFound))
	assert.True(t, errors.IsCode(svc.Delete(ctx, editor, a.ID), errors.ErrCodeCategoryNotFound))
}

//Personal.AI order the ending
