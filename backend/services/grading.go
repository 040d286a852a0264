package services

import "apollo/backend/models"

// Response is one submitted answer. SelectedAnswerID is nil for a skipped question.
type Response struct {
	QuestionID       uint  `json:"question_id" validate:"required"`
	SelectedAnswerID *uint `json:"selected_answer_id"`
}

type GradedResponse struct {
	QuestionID       uint
	SelectedAnswerID *uint
	IsCorrect        bool
}

type GradeResult struct {
	Score        float64
	Passed       bool
	EarnedPoints int
	TotalPoints  int
	Responses    []GradedResponse
}

// Grade scores responses against questions (with answers loaded).
//
// totalPoints sums every question of the quiz, answered or not. Responses for
// questions outside the quiz are dropped, an answer that is not one of the
// question's answers is incorrect, and only the first response per question counts.
// A quiz without points scores 0.
func Grade(questions []models.QuizQuestion, responses []Response, passingScore int) GradeResult {
	byID := make(map[uint]*models.QuizQuestion, len(questions))
	var result GradeResult
	for i := range questions {
		q := &questions[i]
		byID[q.ID] = q
		result.TotalPoints += q.Points
	}

	seen := make(map[uint]bool, len(responses))
	for _, r := range responses {
		q, ok := byID[r.QuestionID]
		if !ok || seen[r.QuestionID] {
			continue
		}
		seen[r.QuestionID] = true

		correct := r.SelectedAnswerID != nil && isCorrectAnswer(q, *r.SelectedAnswerID)
		if correct {
			result.EarnedPoints += q.Points
		}
		result.Responses = append(result.Responses, GradedResponse{
			QuestionID:       q.ID,
			SelectedAnswerID: validAnswerID(q, r.SelectedAnswerID),
			IsCorrect:        correct,
		})
	}

	if result.TotalPoints > 0 {
		result.Score = float64(result.EarnedPoints) * 100 / float64(result.TotalPoints)
	}
	// A quiz without points never passes, even with passing_score 0.
	result.Passed = result.TotalPoints > 0 && result.Score >= float64(passingScore)
	return result
}

func isCorrectAnswer(q *models.QuizQuestion, answerID uint) bool {
	for _, a := range q.Answers {
		if a.ID == answerID {
			return a.IsCorrect
		}
	}
	return false
}

// validAnswerID keeps the selection only if it belongs to q.
func validAnswerID(q *models.QuizQuestion, answerID *uint) *uint {
	if answerID == nil {
		return nil
	}
	for _, a := range q.Answers {
		if a.ID == *answerID {
			id := a.ID
			return &id
		}
	}
	return nil
}
