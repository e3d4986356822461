package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rewardColumns() []string {
	return []string{"id", "title", "description", "price", "partner"}
}

func TestRewardRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRewardRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM rewards WHERE id").
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(rewardColumns()).
			AddRow(int64(2), "Cafe : Art House", "15% CASHBACK (MAX 30 LARI)", int64(15), "Art House"))

	rw, err := repo.GetByID(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, rw)
	assert.Equal(t, "Cafe : Art House", rw.Title)
	assert.Equal(t, int64(15), rw.Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRewardRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRewardRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM rewards WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(rewardColumns()))

	rw, err := repo.GetByID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, rw)
}

func TestRewardRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRewardRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM rewards ORDER BY id").
		WillReturnRows(pgxmock.NewRows(rewardColumns()).
			AddRow(int64(1), "Restaurant : Tavaduri", "20% CASHBACK (MAX 40 LARI)", int64(20), "Tavaduri").
			AddRow(int64(3), "Museum : Modern Art", "FREE ENTRY + 10% CASHBACK", int64(10), "Museum of Modern Art"))

	rewards, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rewards, 2)
	assert.Equal(t, int64(1), rewards[0].ID)
	assert.Equal(t, int64(3), rewards[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
