package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/secretaria-online/secretaria-api/internal/models"
)

func newContractRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestContractRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()

	repo := NewContractRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contracts")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	filePath := "/contracts/contract_stu-1_1_2026.pdf"
	fileName := "contract_stu-1_1_2026.pdf"
	contract := &models.Contract{
		StudentID: "stu-1",
		Semester:  1,
		Year:      2026,
		FilePath:  &filePath,
		FileName:  &fileName,
	}
	require.NoError(t, repo.Create(context.Background(), contract))
	require.NotEmpty(t, contract.ID)
	require.False(t, contract.CreatedAt.IsZero())

	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "student_id", "semester", "year", "file_path", "file_name", "accepted_at", "created_at"}).
		AddRow(contract.ID, nil, "stu-1", 1, 2026, filePath, fileName, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, enrollment_id, student_id")).
		WithArgs(contract.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), contract.ID)
	require.NoError(t, err)
	require.Equal(t, "stu-1", found.StudentID)
	require.Nil(t, found.AcceptedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()

	repo := NewContractRepository(db)
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "student_id", "semester", "year", "file_path", "file_name", "accepted_at", "created_at"}).
		AddRow("ctr-1", "enr-1", "stu-1", 2, 2026, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, enrollment_id, student_id")).
		WithArgs("stu-1", 2026).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("stu-1", 2026).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	contracts, total, err := repo.List(context.Background(), models.ContractFilter{StudentID: "stu-1", Year: 2026})
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	require.Equal(t, 1, total)
	require.NotNil(t, contracts[0].AcceptedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepositorySetAcceptedOnlyOnce(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()

	repo := NewContractRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contracts SET accepted_at = $2 WHERE id = $1 AND accepted_at IS NULL")).
		WithArgs("ctr-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetAccepted(context.Background(), "ctr-1", now))
	require.NoError(t, mock.ExpectationsWereMet())
}
