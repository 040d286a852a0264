package services

import (
	"context"
	"log"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

// QuizService runs quiz authoring and the attempt lifecycle:
// start creates an in-progress attempt, submit grades it exactly once.
type QuizService struct {
	DB      *gorm.DB
	Reorder *ReorderService
	Metrics *utils.Metrics
	Logger  *log.Logger
	Now     func() time.Time
}

func NewQuizService(db *gorm.DB, reorder *ReorderService, m *utils.Metrics, logger *log.Logger) *QuizService {
	return &QuizService{
		DB:      db,
		Reorder: reorder,
		Metrics: m,
		Logger:  utils.Tagged(logger, "QUIZ"),
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

type SubmitInput struct {
	Responses []Response `json:"responses" validate:"dive"`
}

type SubmitResult struct {
	Attempt      *models.QuizAttempt `json:"attempt"`
	Score        float64             `json:"score"`
	Passed       bool                `json:"passed"`
	EarnedPoints int                 `json:"earnedPoints"`
	TotalPoints  int                 `json:"totalPoints"`
}

// Start opens a new attempt. Students need a paid enrollment; the course owner
// and admins may start attempts to preview a quiz.
func (s *QuizService) Start(ctx context.Context, p utils.Principal, quizID uint) (*models.QuizAttempt, error) {
	db := s.DB.WithContext(ctx)
	quiz, course, err := quizWithCourse(db, quizID)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(p, course) {
		if !p.IsStudent() || course.Status != models.CourseApproved {
			return nil, utils.NewAuthorizationError("Only enrolled students can take this quiz")
		}
		ok, err := hasPaidEnrollment(db, p.UserID, course.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, utils.NewAuthorizationError("A paid enrollment is required to take this quiz")
		}
	}

	attempt := models.QuizAttempt{
		QuizID:    quiz.ID,
		StudentID: p.UserID,
		StartedAt: s.Now(),
	}
	if err := db.Create(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Submit grades an attempt. A completed attempt is never re-scored: a second
// submission fails with a conflict, also when two submissions race.
func (s *QuizService) Submit(ctx context.Context, p utils.Principal, attemptID uint, responses []Response) (*SubmitResult, error) {
	if err := utils.ValidateStruct(SubmitInput{Responses: responses}); err != nil {
		return nil, err
	}

	var result *SubmitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attempt models.QuizAttempt
		if err := tx.First(&attempt, attemptID).Error; err != nil {
			return notFound(err, "Attempt")
		}
		if attempt.StudentID != p.UserID {
			return utils.NewAuthorizationError("This attempt belongs to another user")
		}
		if attempt.Completed() {
			return utils.NewConflictError("Attempt already completed")
		}

		var quiz models.Quiz
		err := tx.Preload("Questions", orderByPosition).
			Preload("Questions.Answers", orderByPosition).
			First(&quiz, attempt.QuizID).Error
		if err != nil {
			return notFound(err, "Quiz")
		}

		graded := Grade(quiz.Questions, responses, quiz.PassingScore)
		now := s.Now()

		res := tx.Model(&models.QuizAttempt{}).
			Where("id = ? AND completed_at IS NULL", attempt.ID).
			Updates(map[string]interface{}{
				"completed_at": now,
				"score":        graded.Score,
				"passed":       graded.Passed,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NewConflictError("Attempt already completed")
		}

		if len(graded.Responses) > 0 {
			rows := make([]models.QuizResponse, 0, len(graded.Responses))
			for _, r := range graded.Responses {
				rows = append(rows, models.QuizResponse{
					AttemptID:        attempt.ID,
					QuestionID:       r.QuestionID,
					SelectedAnswerID: r.SelectedAnswerID,
					IsCorrect:        r.IsCorrect,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		if err := tx.Preload("Responses").First(&attempt, attempt.ID).Error; err != nil {
			return err
		}
		result = &SubmitResult{
			Attempt:      &attempt,
			Score:        graded.Score,
			Passed:       graded.Passed,
			EarnedPoints: graded.EarnedPoints,
			TotalPoints:  graded.TotalPoints,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.QuizSubmitted(result.Passed)
	s.Logger.Printf("attempt %d by user %d scored %.2f (passed=%t)", attemptID, p.UserID, result.Score, result.Passed)
	return result, nil
}

// History lists the caller's attempts on a quiz in the order they were started.
func (s *QuizService) History(ctx context.Context, p utils.Principal, quizID uint) ([]models.QuizAttempt, error) {
	db := s.DB.WithContext(ctx)
	if _, _, err := quizWithCourse(db, quizID); err != nil {
		return nil, err
	}
	var attempts []models.QuizAttempt
	err := db.Where("quiz_id = ? AND student_id = ?", quizID, p.UserID).
		Order("started_at ASC, id ASC").
		Find(&attempts).Error
	return attempts, err
}

// Attempt returns one attempt with its responses to its owner, the course owner or an admin.
func (s *QuizService) Attempt(ctx context.Context, p utils.Principal, attemptID uint) (*models.QuizAttempt, error) {
	db := s.DB.WithContext(ctx)
	var attempt models.QuizAttempt
	if err := db.Preload("Responses").First(&attempt, attemptID).Error; err != nil {
		return nil, notFound(err, "Attempt")
	}
	if attempt.StudentID == p.UserID {
		return &attempt, nil
	}
	_, course, err := quizWithCourse(db, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(p, course) {
		return nil, utils.NewAuthorizationError("This attempt belongs to another user")
	}
	return &attempt, nil
}
