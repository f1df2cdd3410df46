package educonnect_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-educonnect"
)

func TestRequirementsCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := educonnect.NewRepositoryManager(newTestDB(t))

	orgID := uuid.New()
	otherID := uuid.New()
	for _, id := range []uuid.UUID{orgID, otherID} {
		_, err := repo.Profiles().Provision(ctx, educonnect.RoleOrganization, id)
		require.NoError(t, err)
	}

	older := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	newer := older.Add(30 * time.Minute)

	first, err := repo.Requirements().Create(ctx, &educonnect.TeachingRequirement{
		OrganizationID: orgID,
		Title:          "Robotics club",
		Description:    "Weekly club",
		SubjectArea:    "STEM",
		Duration:       "12 weeks",
		BudgetRange:    "$1000",
		LocationType:   educonnect.LocationRemote,
		CreatedAt:      &older,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, []string{}, first.RequiredExpertise)

	second, err := repo.Requirements().Create(ctx, &educonnect.TeachingRequirement{
		OrganizationID:    orgID,
		Title:             "Spanish tutor",
		Description:       "Conversation practice",
		SubjectArea:       "Languages",
		RequiredExpertise: []string{"spanish"},
		Duration:          "1 semester",
		BudgetRange:       "$500",
		LocationType:      educonnect.LocationInPerson,
		Location:          "Springfield",
		CreatedAt:         &newer,
	})
	require.NoError(t, err)

	_, err = repo.Requirements().Create(ctx, &educonnect.TeachingRequirement{
		OrganizationID: otherID,
		Title:          "Art",
		Description:    "Painting",
		SubjectArea:    "Arts",
		Duration:       "4 weeks",
		BudgetRange:    "$200",
		LocationType:   educonnect.LocationHybrid,
	})
	require.NoError(t, err)

	list, err := repo.Requirements().ListByOrganization(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, []string{"spanish"}, list[0].RequiredExpertise)
	assert.Equal(t, "Springfield", list[0].Location)
}

func TestRequirementsListEmpty(t *testing.T) {
	repo := educonnect.NewRepositoryManager(newTestDB(t))

	list, err := repo.Requirements().ListByOrganization(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRequirementsRejectUnknownLocationType(t *testing.T) {
	repo := educonnect.NewRepositoryManager(newTestDB(t))

	_, err := repo.Requirements().Create(context.Background(), &educonnect.TeachingRequirement{
		OrganizationID: uuid.New(),
		Title:          "Moon school",
		Description:    "Far away",
		SubjectArea:    "Space",
		Duration:       "1 year",
		BudgetRange:    "$1",
		LocationType:   "moon",
	})
	assert.Error(t, err)
}

func TestRequirementsListReturnsEveryRow(t *testing.T) {
	ctx := context.Background()
	repo := educonnect.NewRepositoryManager(newTestDB(t))

	orgID := uuid.New()
	_, err := repo.Profiles().Provision(ctx, educonnect.RoleOrganization, orgID)
	require.NoError(t, err)

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	var last uuid.UUID
	for i := 0; i < 30; i++ {
		created := base.Add(time.Duration(i) * time.Second)
		record, err := repo.Requirements().Create(ctx, &educonnect.TeachingRequirement{
			OrganizationID: orgID,
			Title:          "Workshop",
			Description:    "Hands on session",
			SubjectArea:    "STEM",
			Duration:       "1 day",
			BudgetRange:    "$100",
			LocationType:   educonnect.LocationRemote,
			CreatedAt:      &created,
		})
		require.NoError(t, err)
		last = record.ID
	}

	list, err := repo.Requirements().ListByOrganization(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, list, 30, "list is not paginated")
	assert.Equal(t, last, list[0].ID)
}
