package controllers

import (
	"apollo/backend/models"
	"apollo/backend/services"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type QuizController struct {
	Quizzes *services.QuizService
}

func NewQuizController(quizzes *services.QuizService) *QuizController {
	return &QuizController{Quizzes: quizzes}
}

type studentAnswer struct {
	ID         uint   `json:"id"`
	AnswerText string `json:"answer_text"`
	Position   int    `json:"position"`
}

type studentQuestion struct {
	ID           uint            `json:"id"`
	QuestionText string          `json:"question_text"`
	QuestionType string          `json:"question_type"`
	Points       int             `json:"points"`
	Position     int             `json:"position"`
	Answers      []studentAnswer `json:"answers"`
}

type studentQuiz struct {
	ID               uint              `json:"id"`
	CourseID         uint              `json:"course_id"`
	LessonID         *uint             `json:"lesson_id,omitempty"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	PassingScore     int               `json:"passing_score"`
	TimeLimitMinutes *int              `json:"time_limit_minutes,omitempty"`
	Questions        []studentQuestion `json:"questions"`
}

// presentQuiz strips is_correct from every answer
func presentQuiz(q *models.Quiz) studentQuiz {
	out := studentQuiz{
		ID:               q.ID,
		CourseID:         q.CourseID,
		LessonID:         q.LessonID,
		Title:            q.Title,
		Description:      q.Description,
		PassingScore:     q.PassingScore,
		TimeLimitMinutes: q.TimeLimitMinutes,
		Questions:        make([]studentQuestion, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		sq := studentQuestion{
			ID:           question.ID,
			QuestionText: question.QuestionText,
			QuestionType: question.QuestionType,
			Points:       question.Points,
			Position:     question.Position,
			Answers:      make([]studentAnswer, 0, len(question.Answers)),
		}
		for _, a := range question.Answers {
			sq.Answers = append(sq.Answers, studentAnswer{ID: a.ID, AnswerText: a.AnswerText, Position: a.Position})
		}
		out.Questions = append(out.Questions, sq)
	}
	return out
}

// ListCourseQuizzes godoc
// @Summary List the quizzes of a course
// @Tags quizzes
// @Produce json
// @Param courseId path int true "Course ID"
// @Router /quizzes/courses/{courseId}/quizzes [get]
func (qc *QuizController) ListCourseQuizzes(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	quizzes, err := qc.Quizzes.ListByCourse(c.UserContext(), principal(c), courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"quizzes": quizzes})
}

// GetQuiz godoc
// @Summary Quiz with questions
// @Description Correct answers are only visible to the course owner and admins
// @Tags quizzes
// @Router /quizzes/{id} [get]
func (qc *QuizController) GetQuiz(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	quiz, reveal, err := qc.Quizzes.Get(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if !reveal {
		return c.JSON(fiber.Map{"quiz": presentQuiz(quiz)})
	}
	return c.JSON(fiber.Map{"quiz": quiz})
}

// @Summary Create a quiz, optionally with questions
// @Tags quizzes
// @Router /quizzes [post]
func (qc *QuizController) CreateQuiz(c *fiber.Ctx) error {
	var input services.QuizInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	quiz, err := qc.Quizzes.Create(c.UserContext(), principal(c), input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, fiber.Map{"quiz": quiz})
}

func (qc *QuizController) UpdateQuiz(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.QuizUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	quiz, err := qc.Quizzes.Update(c.UserContext(), principal(c), id, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"quiz": quiz})
}

func (qc *QuizController) DeleteQuiz(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := qc.Quizzes.Delete(c.UserContext(), principal(c), id); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Quiz deleted"})
}

func (qc *QuizController) AddQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.QuestionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	question, err := qc.Quizzes.AddQuestion(c.UserContext(), principal(c), id, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, fiber.Map{"question": question})
}

func (qc *QuizController) DeleteQuestion(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	questionID, err := paramID(c, "questionId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := qc.Quizzes.DeleteQuestion(c.UserContext(), principal(c), id, questionID); err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Question deleted"})
}

// @Summary Reorder the questions of a quiz
// @Tags quizzes
// @Router /quizzes/{id}/questions/reorder [put]
func (qc *QuizController) ReorderQuestions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.ReorderInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	questions, err := qc.Quizzes.ReorderQuestions(c.UserContext(), principal(c), id, input.Order)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"questions": questions})
}

// StartAttempt godoc
// @Summary Start a quiz attempt
// @Description Every call opens a new, independent attempt
// @Tags quizzes
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponse
// @Router /quizzes/{id}/attempt [post]
func (qc *QuizController) StartAttempt(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	attempt, err := qc.Quizzes.Start(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, fiber.Map{"attempt": attempt})
}

// ListAttempts returns the caller's attempts at a quiz
// @Router /quizzes/{id}/attempts [get]
func (qc *QuizController) ListAttempts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}

	attempts, err := qc.Quizzes.History(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"attempts": attempts})
}

func (qc *QuizController) GetAttempt(c *fiber.Ctx) error {
	id, err := paramID(c, "attemptId")
	if err != nil {
		return utils.HandleError(c, err)
	}

	attempt, err := qc.Quizzes.Attempt(c.UserContext(), principal(c), id)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"attempt": attempt})
}

// SubmitAttempt godoc
// @Summary Submit and grade an attempt
// @Description An attempt can be submitted once; a second submit returns 409
// @Tags quizzes
// @Accept json
// @Param request body services.SubmitInput true "Responses"
// @Success 200 {object} services.SubmitResult
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /quizzes/attempts/{attemptId}/submit [post]
func (qc *QuizController) SubmitAttempt(c *fiber.Ctx) error {
	id, err := paramID(c, "attemptId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.SubmitInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	result, err := qc.Quizzes.Submit(c.UserContext(), principal(c), id, input.Responses)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(result)
}
