package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReview_Windows(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	cases := []struct {
		age       time.Duration
		canEdit   bool
		canDelete bool
	}{
		{age: 0, canEdit: true, canDelete: true},
		{age: 7*day + time.Hour, canEdit: true, canDelete: true},
		{age: 8*day - time.Minute, canEdit: true, canDelete: true},
		{age: 8 * day, canEdit: true, canDelete: false},
		{age: 29 * day, canEdit: true, canDelete: false},
		{age: 30 * day, canEdit: true, canDelete: false},
		{age: 31*day - time.Minute, canEdit: true, canDelete: false},
		{age: 31 * day, canEdit: false, canDelete: false},
	}
	for _, tc := range cases {
		r := &Review{CreatedAt: now.Add(-tc.age)}
		assert.Equal(t, tc.canEdit, r.CanEdit(now), "edit at %v", tc.age)
		assert.Equal(t, tc.canDelete, r.CanDelete(now), "delete at %v", tc.age)
	}
}

func TestReview_ApplyReportsScoreChange(t *testing.T) {
	r := &Review{Score: 4, Comment: "Muy buen trabajo"}
	comment := "Excelente, volvería a contratar"
	same := 4
	five := 5

	assert.False(t, r.Apply(ReviewUpdate{Score: &same, Comment: &comment}, time.Now()))
	assert.Equal(t, comment, r.Comment)

	assert.True(t, r.Apply(ReviewUpdate{Score: &five}, time.Now()))
	assert.Equal(t, 5, r.Score)
}
