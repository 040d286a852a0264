package services

import (
	"context"
	"strings"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

type AnswerInput struct {
	AnswerText string `json:"answer_text" validate:"required"`
	IsCorrect  bool   `json:"is_correct"`
}

type QuestionInput struct {
	QuestionText string        `json:"question_text" validate:"required"`
	QuestionType string        `json:"question_type" validate:"omitempty,oneof=multiple_choice true_false"`
	Points       *int          `json:"points" validate:"omitempty,min=1"`
	Answers      []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

type QuizInput struct {
	CourseID         uint            `json:"course_id" validate:"required"`
	LessonID         *uint           `json:"lesson_id"`
	Title            string          `json:"title" validate:"required,max=255"`
	Description      string          `json:"description"`
	PassingScore     *int            `json:"passing_score" validate:"omitempty,min=0,max=100"`
	TimeLimitMinutes *int            `json:"time_limit_minutes" validate:"omitempty,min=1"`
	Questions        []QuestionInput `json:"questions" validate:"dive"`
}

type QuizUpdate struct {
	Title            *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description      *string `json:"description"`
	PassingScore     *int    `json:"passing_score" validate:"omitempty,min=0,max=100"`
	TimeLimitMinutes *int    `json:"time_limit_minutes" validate:"omitempty,min=0"`
}

// validateQuestion enforces what the schema cannot: at least one correct answer,
// and true/false questions have exactly two answers with one correct.
func validateQuestion(in QuestionInput) error {
	correct := 0
	for _, a := range in.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		return utils.NewValidationError("question %q needs at least one correct answer", in.QuestionText)
	}
	if in.QuestionType == models.QuestionTrueFalse && (len(in.Answers) != 2 || correct != 1) {
		return utils.NewValidationError("true_false questions need exactly two answers with one correct")
	}
	return nil
}

func (s *QuizService) ListByCourse(ctx context.Context, p utils.Principal, courseID uint) ([]models.Quiz, error) {
	db := s.DB.WithContext(ctx)
	if _, err := viewableCourse(db, p, courseID); err != nil {
		return nil, err
	}
	var quizzes []models.Quiz
	err := db.Where("course_id = ?", courseID).
		Preload("Questions", orderByPosition).
		Order("created_at, id").
		Find(&quizzes).Error
	return quizzes, err
}

// Get returns the quiz with questions and answers. reveal reports whether the
// caller may see which answers are correct.
func (s *QuizService) Get(ctx context.Context, p utils.Principal, quizID uint) (quiz *models.Quiz, reveal bool, err error) {
	db := s.DB.WithContext(ctx)
	_, course, err := quizWithCourse(db, quizID)
	if err != nil {
		return nil, false, err
	}
	if !canViewCourse(p, course) {
		return nil, false, utils.NewNotFoundError("Quiz")
	}
	quiz, err = s.loadQuiz(db, quizID)
	if err != nil {
		return nil, false, err
	}
	return quiz, canEditCourse(p, course), nil
}

func (s *QuizService) Create(ctx context.Context, p utils.Principal, in QuizInput) (*models.Quiz, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	for _, q := range in.Questions {
		if err := validateQuestion(q); err != nil {
			return nil, err
		}
	}

	var quizID uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := editableCourse(tx, p, in.CourseID)
		if err != nil {
			return err
		}
		if in.LessonID != nil {
			courseID, err := lessonCourseID(tx, *in.LessonID)
			if err != nil {
				return err
			}
			if courseID != course.ID {
				return utils.NewValidationError("lesson %d does not belong to course %d", *in.LessonID, course.ID)
			}
		}

		passing := models.DefaultPassingScore
		if in.PassingScore != nil {
			passing = *in.PassingScore
		}
		quiz := models.Quiz{
			CourseID:         course.ID,
			LessonID:         in.LessonID,
			Title:            strings.TrimSpace(in.Title),
			Description:      in.Description,
			PassingScore:     passing,
			TimeLimitMinutes: in.TimeLimitMinutes,
		}
		if err := tx.Create(&quiz).Error; err != nil {
			return err
		}
		for _, q := range in.Questions {
			if _, err := createQuestion(tx, quiz.ID, q); err != nil {
				return err
			}
		}
		quizID = quiz.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.loadQuiz(s.DB.WithContext(ctx), quizID)
}

func (s *QuizService) Update(ctx context.Context, p utils.Principal, quizID uint, in QuizUpdate) (*models.Quiz, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	quiz, err := s.editableQuiz(db, p, quizID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		quiz.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		quiz.Description = *in.Description
	}
	if in.PassingScore != nil {
		quiz.PassingScore = *in.PassingScore
	}
	if in.TimeLimitMinutes != nil {
		if *in.TimeLimitMinutes == 0 {
			quiz.TimeLimitMinutes = nil
		} else {
			quiz.TimeLimitMinutes = in.TimeLimitMinutes
		}
	}
	err = db.Model(quiz).Select("title", "description", "passing_score", "time_limit_minutes").Updates(quiz).Error
	if err != nil {
		return nil, err
	}
	return s.loadQuiz(db, quiz.ID)
}

func (s *QuizService) Delete(ctx context.Context, p utils.Principal, quizID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := s.editableQuiz(tx, p, quizID)
		if err != nil {
			return err
		}
		return deleteQuizzes(tx, []uint{quiz.ID})
	})
}

func (s *QuizService) AddQuestion(ctx context.Context, p utils.Principal, quizID uint, in QuestionInput) (*models.QuizQuestion, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := validateQuestion(in); err != nil {
		return nil, err
	}
	var question *models.QuizQuestion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := s.editableQuiz(tx, p, quizID)
		if err != nil {
			return err
		}
		question, err = createQuestion(tx, quiz.ID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, p utils.Principal, quizID, questionID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := s.editableQuiz(tx, p, quizID)
		if err != nil {
			return err
		}
		var question models.QuizQuestion
		if err := tx.Where("id = ? AND quiz_id = ?", questionID, quiz.ID).First(&question).Error; err != nil {
			return notFound(err, "Question")
		}
		if err := deleteQuestions(tx, []uint{question.ID}); err != nil {
			return err
		}
		return Compact(tx, QuestionSiblings, quiz.ID)
	})
}

// ReorderQuestions rewrites every question position of the quiz.
func (s *QuizService) ReorderQuestions(ctx context.Context, p utils.Principal, quizID uint, order []uint) ([]models.QuizQuestion, error) {
	db := s.DB.WithContext(ctx)
	if _, err := s.editableQuiz(db, p, quizID); err != nil {
		return nil, err
	}
	if err := s.Reorder.Reorder(ctx, QuestionSiblings, quizID, order); err != nil {
		return nil, err
	}
	quiz, err := s.loadQuiz(db, quizID)
	if err != nil {
		return nil, err
	}
	return quiz.Questions, nil
}

func (s *QuizService) editableQuiz(tx *gorm.DB, p utils.Principal, quizID uint) (*models.Quiz, error) {
	quiz, course, err := quizWithCourse(tx, quizID)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(p, course) {
		return nil, utils.NewAuthorizationError("You do not own this course")
	}
	return quiz, nil
}

func (s *QuizService) loadQuiz(db *gorm.DB, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := db.Preload("Questions", orderByPosition).
		Preload("Questions.Answers", orderByPosition).
		First(&quiz, quizID).Error
	if err != nil {
		return nil, notFound(err, "Quiz")
	}
	return &quiz, nil
}

func createQuestion(tx *gorm.DB, quizID uint, in QuestionInput) (*models.QuizQuestion, error) {
	pos, err := NextPosition(tx, QuestionSiblings, quizID)
	if err != nil {
		return nil, err
	}
	qtype := in.QuestionType
	if qtype == "" {
		qtype = models.QuestionMultipleChoice
	}
	points := 1
	if in.Points != nil {
		points = *in.Points
	}

	question := models.QuizQuestion{
		QuizID:       quizID,
		QuestionText: strings.TrimSpace(in.QuestionText),
		QuestionType: qtype,
		Points:       points,
		Position:     pos,
	}
	for i, a := range in.Answers {
		question.Answers = append(question.Answers, models.QuizAnswer{
			AnswerText: strings.TrimSpace(a.AnswerText),
			IsCorrect:  a.IsCorrect,
			Position:   i,
		})
	}
	if err := tx.Create(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}
