package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

const defaultAssignmentPoints = 100

type AssignmentService struct {
	DB            *gorm.DB
	Notifications *NotificationService
	Logger        *log.Logger
	Now           func() time.Time
}

func NewAssignmentService(db *gorm.DB, n *NotificationService, logger *log.Logger) *AssignmentService {
	return &AssignmentService{
		DB:            db,
		Notifications: n,
		Logger:        utils.Tagged(logger, "ASSIGNMENTS"),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

type AssignmentInput struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
	Points      *int       `json:"points" validate:"omitempty,min=1"`
}

type AssignmentUpdate struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	DueAt       *time.Time `json:"due_at"`
	Points      *int       `json:"points" validate:"omitempty,min=1"`
}

type SubmissionInput struct {
	ContentURL  string `json:"content_url" validate:"omitempty,url,max=1024"`
	ContentText string `json:"content_text"`
}

type GradeInput struct {
	Grade    *float64 `json:"grade" validate:"required,min=0"`
	Feedback string   `json:"feedback"`
}

type GradeAverage struct {
	StudentID    uint     `json:"student_id"`
	AverageGrade *float64 `json:"avg_grade"`
	Submissions  int      `json:"submission_count"`
	Graded       int      `json:"graded_count"`
}

type Gradebook struct {
	CourseID    uint                `json:"course_id"`
	Assignments []models.Assignment `json:"assignments"`
	Submissions []models.Submission `json:"submissions"`
	Averages    []GradeAverage      `json:"averages"`
}

func assignmentWithCourse(tx *gorm.DB, id uint) (*models.Assignment, *models.Course, error) {
	var a models.Assignment
	if err := tx.First(&a, id).Error; err != nil {
		return nil, nil, notFound(err, "Assignment")
	}
	course, err := findCourse(tx, a.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return &a, course, nil
}

func (s *AssignmentService) ListByCourse(ctx context.Context, p utils.Principal, courseID uint) ([]models.Assignment, error) {
	db := s.DB.WithContext(ctx)
	if _, err := viewableCourse(db, p, courseID); err != nil {
		return nil, err
	}
	out := []models.Assignment{}
	err := db.Where("course_id = ?", courseID).
		Order("CASE WHEN due_at IS NULL THEN 1 ELSE 0 END, due_at, id").
		Find(&out).Error
	return out, err
}

func (s *AssignmentService) Create(ctx context.Context, p utils.Principal, courseID uint, in AssignmentInput) (*models.Assignment, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if _, err := editableCourse(db, p, courseID); err != nil {
		return nil, err
	}
	a := models.Assignment{
		CourseID:    courseID,
		Title:       in.Title,
		Description: in.Description,
		DueAt:       in.DueAt,
		Points:      defaultAssignmentPoints,
		CreatedBy:   p.UserID,
	}
	if in.Points != nil {
		a.Points = *in.Points
	}
	if err := db.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AssignmentService) editable(tx *gorm.DB, p utils.Principal, id uint) (*models.Assignment, error) {
	a, course, err := assignmentWithCourse(tx, id)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(p, course) {
		return nil, utils.NewAuthorizationError("You do not own this course")
	}
	return a, nil
}

func (s *AssignmentService) Update(ctx context.Context, p utils.Principal, id uint, in AssignmentUpdate) (*models.Assignment, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	a, err := s.editable(db, p, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		if a.Title = strings.TrimSpace(*in.Title); a.Title == "" {
			return nil, utils.NewValidationError("Title must not be blank")
		}
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.DueAt != nil {
		a.DueAt = in.DueAt
	}
	if in.Points != nil {
		a.Points = *in.Points
	}
	if err := db.Model(a).Select("title", "description", "due_at", "points").Updates(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes the assignment with its submissions.
func (s *AssignmentService) Delete(ctx context.Context, p utils.Principal, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := s.editable(tx, p, id)
		if err != nil {
			return err
		}
		if err := tx.Where("assignment_id = ?", a.ID).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		return tx.Delete(a).Error
	})
}

// Submit stores the student's work. A second submit replaces the content and
// keeps any grade already given.
func (s *AssignmentService) Submit(ctx context.Context, p utils.Principal, assignmentID uint, in SubmissionInput) (*models.Submission, error) {
	in.ContentURL = strings.TrimSpace(in.ContentURL)
	in.ContentText = strings.TrimSpace(in.ContentText)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.ContentURL == "" && in.ContentText == "" {
		return nil, utils.NewValidationError("Submission content is required")
	}
	if !p.IsStudent() {
		return nil, utils.NewAuthorizationError("Only students submit assignments")
	}

	var sub models.Submission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, course, err := assignmentWithCourse(tx, assignmentID)
		if err != nil {
			return err
		}
		ok, err := hasPaidEnrollment(tx, p.UserID, course.ID)
		if err != nil {
			return err
		}
		if !ok {
			return utils.NewAuthorizationError("A paid enrollment is required")
		}

		err = tx.Where("assignment_id = ? AND student_id = ?", a.ID, p.UserID).First(&sub).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		sub.AssignmentID = a.ID
		sub.StudentID = p.UserID
		sub.ContentURL = in.ContentURL
		sub.ContentText = in.ContentText
		sub.SubmittedAt = s.Now()
		return tx.Save(&sub).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubmissions shows every submission to the course owner and admins and
// only their own to students.
func (s *AssignmentService) ListSubmissions(ctx context.Context, p utils.Principal, assignmentID uint) ([]models.Submission, error) {
	db := s.DB.WithContext(ctx)
	a, course, err := assignmentWithCourse(db, assignmentID)
	if err != nil {
		return nil, err
	}
	q := db.Where("assignment_id = ?", a.ID)
	if !canEditCourse(p, course) {
		if !p.IsStudent() {
			return nil, utils.NewAuthorizationError("You do not own this course")
		}
		q = q.Where("student_id = ?", p.UserID)
	}
	out := []models.Submission{}
	err = q.Order("submitted_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (s *AssignmentService) Grade(ctx context.Context, p utils.Principal, submissionID uint, in GradeInput) (*models.Submission, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	var (
		sub   models.Submission
		title string
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, submissionID).Error; err != nil {
			return notFound(err, "Submission")
		}
		a, err := s.editable(tx, p, sub.AssignmentID)
		if err != nil {
			return err
		}
		if *in.Grade > float64(a.Points) {
			return utils.NewValidationError("Grade must be between 0 and %d", a.Points)
		}
		now := s.Now()
		sub.Grade = in.Grade
		sub.Feedback = strings.TrimSpace(in.Feedback)
		sub.GradedAt = &now
		title = a.Title
		return tx.Model(&sub).Select("grade", "feedback", "graded_at").Updates(&sub).Error
	})
	if err != nil {
		return nil, err
	}

	s.Notifications.notifyQuietly(ctx, sub.StudentID, models.NotifySubmissionGraded,
		fmt.Sprintf("%q has been graded", title),
		fmt.Sprintf("Your grade: %s.", strconv.FormatFloat(*sub.Grade, 'f', -1, 64)),
		map[string]interface{}{"assignment_id": sub.AssignmentID, "submission_id": sub.ID})
	return &sub, nil
}

// Gradebook returns a course's submissions and per-student averages over
// graded work. Students only see their own row.
func (s *AssignmentService) Gradebook(ctx context.Context, p utils.Principal, courseID, studentID uint) (*Gradebook, error) {
	db := s.DB.WithContext(ctx)
	course, err := viewableCourse(db, p, courseID)
	if err != nil {
		return nil, err
	}
	if !canEditCourse(p, course) {
		if !p.IsStudent() {
			return nil, utils.NewAuthorizationError("You do not own this course")
		}
		studentID = p.UserID
	}

	book := &Gradebook{CourseID: course.ID, Assignments: []models.Assignment{}, Submissions: []models.Submission{}}
	if err := db.Where("course_id = ?", course.ID).Order("id").Find(&book.Assignments).Error; err != nil {
		return nil, err
	}
	subs, err := s.courseSubmissions(db, course.ID, studentID)
	if err != nil {
		return nil, err
	}
	book.Submissions = subs
	book.Averages = gradeAverages(subs)
	return book, nil
}

func (s *AssignmentService) courseSubmissions(db *gorm.DB, courseID, studentID uint) ([]models.Submission, error) {
	q := db.Model(&models.Submission{}).
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("assignments.course_id = ?", courseID)
	if studentID != 0 {
		q = q.Where("submissions.student_id = ?", studentID)
	}
	out := []models.Submission{}
	err := q.Order("submissions.student_id, submissions.assignment_id").Find(&out).Error
	return out, err
}

func gradeAverages(subs []models.Submission) []GradeAverage {
	byStudent := map[uint]*GradeAverage{}
	sums := map[uint]float64{}
	for _, sub := range subs {
		avg, ok := byStudent[sub.StudentID]
		if !ok {
			avg = &GradeAverage{StudentID: sub.StudentID}
			byStudent[sub.StudentID] = avg
		}
		avg.Submissions++
		if sub.Grade != nil {
			avg.Graded++
			sums[sub.StudentID] += *sub.Grade
		}
	}
	out := make([]GradeAverage, 0, len(byStudent))
	for id, avg := range byStudent {
		if avg.Graded > 0 {
			v := sums[id] / float64(avg.Graded)
			avg.AverageGrade = &v
		}
		out = append(out, *avg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

// WriteGradebookCSV exports every submission of the course. Course owner and
// admins only.
func (s *AssignmentService) WriteGradebookCSV(ctx context.Context, p utils.Principal, courseID uint, w io.Writer) error {
	db := s.DB.WithContext(ctx)
	if _, err := editableCourse(db, p, courseID); err != nil {
		return err
	}
	subs, err := s.courseSubmissions(db, courseID, 0)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"submission_id", "assignment_id", "student_id", "grade", "feedback", "submitted_at"}); err != nil {
		return err
	}
	for _, sub := range subs {
		grade := ""
		if sub.Grade != nil {
			grade = strconv.FormatFloat(*sub.Grade, 'f', -1, 64)
		}
		if err := cw.Write([]string{
			strconv.FormatUint(uint64(sub.ID), 10),
			strconv.FormatUint(uint64(sub.AssignmentID), 10),
			strconv.FormatUint(uint64(sub.StudentID), 10),
			grade,
			sub.Feedback,
			sub.SubmittedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
