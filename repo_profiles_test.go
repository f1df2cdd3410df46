package educonnect_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-educonnect"
)

func TestProfilesProvisionAndGet(t *testing.T) {
	ctx := context.Background()
	repo := educonnect.NewRepositoryManager(newTestDB(t))
	require.NoError(t, repo.Validate())

	t.Run("organization", func(t *testing.T) {
		id := uuid.New()

		created, err := repo.Profiles().Provision(ctx, educonnect.RoleOrganization, id)
		require.NoError(t, err)
		assert.Equal(t, id, created.GetID())

		got, err := repo.Profiles().Get(ctx, educonnect.RoleOrganization, id)
		require.NoError(t, err)
		assert.Equal(t, educonnect.RoleOrganization, got.ProfileRole())

		org, ok := got.(*educonnect.OrganizationProfile)
		require.True(t, ok)
		assert.Equal(t, "", org.Name)
	})

	t.Run("educator lists start empty", func(t *testing.T) {
		id := uuid.New()

		_, err := repo.Profiles().Provision(ctx, educonnect.RoleEducator, id)
		require.NoError(t, err)

		got, err := repo.Profiles().GetEducator(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{}, got.Expertise)
		assert.Equal(t, []string{}, got.Qualifications)
	})

	t.Run("no role", func(t *testing.T) {
		_, err := repo.Profiles().Provision(ctx, educonnect.RoleNone, uuid.New())
		require.Error(t, err)
	})

	t.Run("nil id", func(t *testing.T) {
		_, err := repo.Profiles().Provision(ctx, educonnect.RoleEducator, uuid.Nil)
		require.Error(t, err)
	})
}

func TestProfilesMissing(t *testing.T) {
	repo := educonnect.NewRepositoryManager(newTestDB(t))

	_, err := repo.Profiles().Get(context.Background(), educonnect.RoleEducator, uuid.New())
	require.Error(t, err)
	assert.True(t, educonnect.IsProfileNotFound(err))

	_, err = repo.Profiles().GetOrganization(context.Background(), uuid.New())
	assert.True(t, educonnect.IsProfileNotFound(err))
}

func TestProfilesProvisionTwiceFails(t *testing.T) {
	ctx := context.Background()
	repo := educonnect.NewRepositoryManager(newTestDB(t))
	id := uuid.New()

	_, err := repo.Profiles().Provision(ctx, educonnect.RoleOrganization, id)
	require.NoError(t, err)

	_, err = repo.Profiles().Provision(ctx, educonnect.RoleOrganization, id)
	assert.Error(t, err)
}

func TestProfilesUpdateEducator(t *testing.T) {
	ctx := context.Background()
	repo := educonnect.NewRepositoryManager(newTestDB(t))
	id := uuid.New()

	_, err := repo.Profiles().Provision(ctx, educonnect.RoleEducator, id)
	require.NoError(t, err)

	record, err := repo.Profiles().GetEducator(ctx, id)
	require.NoError(t, err)

	record.FullName = "Edna Krabappel"
	record.Expertise = []string{"math", "history"}
	_, err = repo.Profiles().UpdateEducator(ctx, record)
	require.NoError(t, err)

	got, err := repo.Profiles().GetEducator(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Edna Krabappel", got.FullName)
	assert.Equal(t, []string{"math", "history"}, got.Expertise)
	assert.Equal(t, []string{}, got.Qualifications)
}

func TestProfilesUpdateOrganization(t *testing.T) {
	ctx := context.Background()
	repo := educonnect.NewRepositoryManager(newTestDB(t))
	id := uuid.New()

	_, err := repo.Profiles().Provision(ctx, educonnect.RoleOrganization, id)
	require.NoError(t, err)

	record, err := repo.Profiles().GetOrganization(ctx, id)
	require.NoError(t, err)

	record.Name = "Springfield Elementary"
	record.Website = "https://springfield.example.com"
	_, err = repo.Profiles().UpdateOrganization(ctx, record)
	require.NoError(t, err)

	got, err := repo.Profiles().GetOrganization(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Springfield Elementary", got.Name)
	assert.Equal(t, "https://springfield.example.com", got.Website)
}
