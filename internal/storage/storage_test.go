package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pq.Error{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"foreign key violation", &pq.Error{Code: "23503"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestRowConversion(t *testing.T) {
	job := (&jobRow{Job: domain.Job{ID: 3}, ReservedFor: pq.Int64Array{7, 9}}).toDomain()
	assert.Equal(t, int64(3), job.ID)
	assert.Equal(t, []int64{7, 9}, job.ReservedFor)

	c := (&customerRow{
		Customer:  domain.Customer{ID: 1},
		Towns:     pq.StringArray{"Lund"},
		Blacklist: pq.Int64Array{4},
	}).toDomain()
	assert.Equal(t, []string{"Lund"}, c.Towns)
	assert.True(t, c.Blacklisted(4))

	tr := (&translatorRow{
		Translator: domain.Translator{ID: 2},
		Languages:  pq.Int64Array{5},
		Towns:      pq.StringArray{"Lund"},
	}).toDomain()
	assert.True(t, tr.SpeaksLanguage(5))
	assert.True(t, tr.SharesTown(c))
}

func TestSchemaHasActiveAssignmentIndex(t *testing.T) {
	assert.Contains(t, schema, "ON translator_job_rel (job_id) WHERE cancel_at IS NULL")
	assert.Contains(t, schema, "CREATE UNIQUE INDEX")
}

func TestAcceptLocksTranslatorBeforeBusyCheck(t *testing.T) {
	assert.Contains(t, lockTranslatorQuery, "FOR NO KEY UPDATE")
	assert.Contains(t, lockTranslatorQuery, "FROM users WHERE id = $1")
	assert.Contains(t, busyQuery, "r.cancel_at IS NULL")
}

func TestJobWritesAreConditionalOnReadStatus(t *testing.T) {
	assert.Contains(t, updateJobQuery, "WHERE id = :id AND status = :expected_status")

	q, args, err := sqlx.Named(updateJobQuery, savedJob{
		Job:            domain.Job{ID: 9, Status: domain.JobStatusWithdrawBefore24},
		ExpectedStatus: domain.JobStatusAssigned,
	})
	require.NoError(t, err)
	assert.NotContains(t, q, ":expected_status")
	assert.Contains(t, args, domain.JobStatusAssigned)
	assert.Contains(t, args, domain.JobStatusWithdrawBefore24)
}
