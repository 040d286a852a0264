package seeds

import (
	"testing"

	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	db, err := utils.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, utils.AutoMigrate(db))

	require.NoError(t, Run(db, "password123", utils.Discard()))

	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.Equal(t, int64(3), users)

	var course models.Course
	require.NoError(t, db.Preload("Sections.Lessons").First(&course).Error)
	assert.Equal(t, models.CourseApproved, course.Status)
	require.Len(t, course.Sections, 2)
	assert.Len(t, course.Sections[1].Lessons, 2)

	var quiz models.Quiz
	require.NoError(t, db.Preload("Questions.Answers").First(&quiz).Error)
	assert.Len(t, quiz.Questions, 2)
	assert.Equal(t, course.ID, quiz.CourseID)

	assert.ErrorIs(t, Run(db, "password123", nil), ErrAlreadySeeded)
}
