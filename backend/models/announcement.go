package models

type Announcement struct {
	Model
	CourseID uint    `gorm:"not null;index" json:"course_id"`
	AuthorID uint    `gorm:"not null;index" json:"author_id"`
	Title    string  `gorm:"size:255;not null" json:"title"`
	Message  string  `gorm:"type:text;not null" json:"message"`
	Course   *Course `json:"course,omitempty"`
}
