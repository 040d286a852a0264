package services

import (
	"context"
	"testing"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePermutation(t *testing.T) {
	tests := []struct {
		name    string
		current []uint
		order   []uint
		wantErr bool
	}{
		{"same order", []uint{1, 2, 3}, []uint{1, 2, 3}, false},
		{"reversed", []uint{1, 2, 3}, []uint{3, 2, 1}, false},
		{"empty parent", nil, []uint{}, false},
		{"missing id", []uint{1, 2, 3}, []uint{1, 2}, true},
		{"extra id", []uint{1, 2}, []uint{1, 2, 3}, true},
		{"foreign id", []uint{1, 2, 3}, []uint{1, 2, 9}, true},
		{"duplicate", []uint{1, 2, 3}, []uint{1, 1, 2}, true},
		{"empty order", []uint{1}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePermutation(tt.current, tt.order)
			if tt.wantErr {
				assert.ErrorIs(t, err, utils.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReorderSections(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, models.RoleInstructor)
	course := mkCourse(t, db, owner, models.CourseDraft, "0")
	s := mkSections(t, db, course, "a", "b", "c")

	svc := NewReorderService(db, nil)
	ctx := context.Background()

	require.NoError(t, svc.Reorder(ctx, SectionSiblings, course.ID, []uint{s[2].ID, s[0].ID, s[1].ID}))
	assert.Equal(t, []uint{s[2].ID, s[0].ID, s[1].ID}, sectionOrder(t, db, course.ID))

	t.Run("rejected order leaves positions untouched", func(t *testing.T) {
		err := svc.Reorder(ctx, SectionSiblings, course.ID, []uint{s[0].ID, s[1].ID})
		assert.ErrorIs(t, err, utils.ErrValidation)
		assert.Equal(t, []uint{s[2].ID, s[0].ID, s[1].ID}, sectionOrder(t, db, course.ID))
	})

	t.Run("ids of another course are foreign", func(t *testing.T) {
		other := mkCourse(t, db, owner, models.CourseDraft, "0")
		o := mkSections(t, db, other, "x")
		err := svc.Reorder(ctx, SectionSiblings, course.ID, []uint{s[2].ID, s[0].ID, o[0].ID})
		assert.ErrorIs(t, err, utils.ErrValidation)
	})
}

func TestCompactAndNextPosition(t *testing.T) {
	db := newTestDB(t)
	owner := mkUser(t, db, models.RoleInstructor)
	course := mkCourse(t, db, owner, models.CourseDraft, "0")
	s := mkSections(t, db, course, "a", "b", "c", "d")

	require.NoError(t, db.Delete(&s[1]).Error)
	require.NoError(t, Compact(db, SectionSiblings, course.ID))

	var positions []int
	require.NoError(t, db.Table("sections").Where("course_id = ?", course.ID).Order("position").Pluck("position", &positions).Error)
	assert.Equal(t, []int{0, 1, 2}, positions)
	assert.Equal(t, []uint{s[0].ID, s[2].ID, s[3].ID}, sectionOrder(t, db, course.ID))

	next, err := NextPosition(db, SectionSiblings, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
}
