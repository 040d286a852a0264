package services

import (
	"context"
	"reflect"

	"apollo/backend/models"
	"apollo/backend/utils"

	"gorm.io/gorm"
)

// SiblingKind describes one ordered child collection.
type SiblingKind struct {
	Name         string
	Model        interface{}
	ParentColumn string
}

var (
	SectionSiblings  = SiblingKind{Name: "sections", Model: &models.Section{}, ParentColumn: "course_id"}
	LessonSiblings   = SiblingKind{Name: "lessons", Model: &models.Lesson{}, ParentColumn: "section_id"}
	QuestionSiblings = SiblingKind{Name: "questions", Model: &models.QuizQuestion{}, ParentColumn: "quiz_id"}
)

// model returns a fresh zero value since GORM writes updated_at back into the model.
func (k SiblingKind) model() interface{} {
	return reflect.New(reflect.TypeOf(k.Model).Elem()).Interface()
}

// ReorderService owns the position column of every sibling collection.
// Positions are 0-based and dense.
type ReorderService struct {
	DB      *gorm.DB
	Metrics *utils.Metrics
}

func NewReorderService(db *gorm.DB, m *utils.Metrics) *ReorderService {
	return &ReorderService{DB: db, Metrics: m}
}

// Reorder assigns position i to order[i]. order must be exactly the current child
// set of parentID; otherwise nothing is written.
func (s *ReorderService) Reorder(ctx context.Context, kind SiblingKind, parentID uint, order []uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ReorderTx(tx, kind, parentID, order)
	})
	s.Metrics.Reordered(kind.Name, err)
	return err
}

// ReorderTx is Reorder inside an existing transaction.
func ReorderTx(tx *gorm.DB, kind SiblingKind, parentID uint, order []uint) error {
	current, err := siblingIDs(tx, kind, parentID)
	if err != nil {
		return err
	}
	if err := ValidatePermutation(current, order); err != nil {
		return err
	}
	return assignPositions(tx, kind, parentID, order)
}

// NextPosition is the position for a child appended at the end.
func NextPosition(tx *gorm.DB, kind SiblingKind, parentID uint) (int, error) {
	var count int64
	err := tx.Model(kind.model()).Where(kind.ParentColumn+" = ?", parentID).Count(&count).Error
	return int(count), err
}

// Compact renumbers the remaining children after a delete, keeping their order.
func Compact(tx *gorm.DB, kind SiblingKind, parentID uint) error {
	ids, err := siblingIDs(tx, kind, parentID)
	if err != nil {
		return err
	}
	return assignPositions(tx, kind, parentID, ids)
}

// ValidatePermutation checks that order lists every id in current exactly once.
func ValidatePermutation(current, order []uint) error {
	if len(order) != len(current) {
		return utils.NewValidationError("order must contain exactly %d ids, got %d", len(current), len(order))
	}
	known := make(map[uint]bool, len(current))
	for _, id := range current {
		known[id] = false
	}
	for _, id := range order {
		seen, ok := known[id]
		if !ok {
			return utils.NewValidationError("id %d does not belong to this parent", id)
		}
		if seen {
			return utils.NewValidationError("id %d appears more than once", id)
		}
		known[id] = true
	}
	return nil
}

func siblingIDs(tx *gorm.DB, kind SiblingKind, parentID uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(kind.model()).
		Where(kind.ParentColumn+" = ?", parentID).
		Order("position, id").
		Pluck("id", &ids).Error
	return ids, err
}

func assignPositions(tx *gorm.DB, kind SiblingKind, parentID uint, order []uint) error {
	for i, id := range order {
		err := tx.Model(kind.model()).
			Where("id = ? AND "+kind.ParentColumn+" = ? AND position <> ?", id, parentID, i).
			Update("position", i).Error
		if err != nil {
			return err
		}
	}
	return nil
}
