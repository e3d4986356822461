package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	hc := NewHealthCheck(mock)
	assert.Equal(t, "postgres", hc.Name())

	const probe = `SELECT EXISTS \(SELECT 1 FROM rewards\)`

	mock.ExpectQuery(probe).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	assert.NoError(t, hc.Ping(context.Background()))

	mock.ExpectQuery(probe).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	assert.ErrorIs(t, hc.Ping(context.Background()), ErrCatalogEmpty)

	mock.ExpectQuery(probe).WillReturnError(errors.New("conn refused"))
	err = hc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query rewards")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_Begin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tr := NewTransactor(mock)

	mock.ExpectBegin()
	tx, err := tr.Begin(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tx)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
	_, err = tr.Begin(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")

	assert.NoError(t, mock.ExpectationsWereMet())
}
