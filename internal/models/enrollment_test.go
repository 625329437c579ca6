package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnrollmentStatus(t *testing.T) {
	status, err := ParseEnrollmentStatus(" pending ")
	require.NoError(t, err)
	assert.Equal(t, EnrollmentStatusPending, status)

	_, err = ParseEnrollmentStatus("FROZEN")
	require.Error(t, err)
}

func TestEnrollmentStatusTransitions(t *testing.T) {
	cases := []struct {
		from    EnrollmentStatus
		to      EnrollmentStatus
		allowed bool
	}{
		{EnrollmentStatusPending, EnrollmentStatusActive, true},
		{EnrollmentStatusPending, EnrollmentStatusCancelled, true},
		{EnrollmentStatusPending, EnrollmentStatusCompleted, false},
		{EnrollmentStatusActive, EnrollmentStatusCancelled, true},
		{EnrollmentStatusActive, EnrollmentStatusReenrollment, true},
		{EnrollmentStatusActive, EnrollmentStatusCompleted, true},
		{EnrollmentStatusActive, EnrollmentStatusPending, true},
		{EnrollmentStatusReenrollment, EnrollmentStatusActive, true},
		{EnrollmentStatusReenrollment, EnrollmentStatusCancelled, true},
		{EnrollmentStatusReenrollment, EnrollmentStatusCompleted, false},
		{EnrollmentStatusCancelled, EnrollmentStatusActive, false},
		{EnrollmentStatusCompleted, EnrollmentStatusActive, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestEnrollmentStatusTerminal(t *testing.T) {
	assert.True(t, EnrollmentStatusCancelled.Terminal())
	assert.True(t, EnrollmentStatusCompleted.Terminal())
	assert.False(t, EnrollmentStatusPending.Terminal())
	assert.False(t, EnrollmentStatusActive.Terminal())
	assert.False(t, EnrollmentStatusReenrollment.Terminal())
}

func TestEnrollmentDeleted(t *testing.T) {
	e := &Enrollment{}
	assert.False(t, e.Deleted())
}
