package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentRepository interface {
	Create(ctx context.Context, student *Student) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Student, error)
	// FindOwned returns the student only when it belongs to the user.
	FindOwned(ctx context.Context, userID, studentID uuid.UUID) (*Student, error)
	UpdateProfile(ctx context.Context, studentID uuid.UUID, name, diagnosis, grade, iepDate string) error
}

type studentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Create(ctx context.Context, student *Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Student, error) {
	var students []Student
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepository) FindOwned(ctx context.Context, userID, studentID uuid.UUID) (*Student, error) {
	var student Student
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", studentID, userID).
		First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) UpdateProfile(ctx context.Context, studentID uuid.UUID, name, diagnosis, grade, iepDate string) error {
	return r.db.WithContext(ctx).
		Model(&Student{}).
		Where("id = ?", studentID).
		Updates(map[string]any{
			"name":       name,
			"diagnosis":  diagnosis,
			"grade":      grade,
			"iep_date":   iepDate,
			"updated_at": time.Now(),
		}).Error
}
