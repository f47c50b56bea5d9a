package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task is a saved breakdown. Steps holds the breakdown lines as a JSON
// array of strings, the same shape the conversation flow produces.
type Task struct {
	ID        string         `gorm:"type:char(13);primaryKey" json:"id"`
	UserID    string         `gorm:"type:char(12);index;not null" json:"user_id"`
	Title     string         `gorm:"type:varchar(250);not null" json:"task"`
	Steps     datatypes.JSON `gorm:"type:jsonb" json:"subtasks"`
	PlannedAt *time.Time     `json:"planned_at"`
	Timestamp time.Time      `json:"timestamp"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

// StepLines decodes the stored JSON array into breakdown lines.
func (t *Task) StepLines() ([]string, error) {
	if len(t.Steps) == 0 {
		return nil, nil
	}
	var lines []string
	if err := json.Unmarshal(t.Steps, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SetStepLines encodes breakdown lines into the stored JSON column.
func (t *Task) SetStepLines(lines []string) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	t.Steps = datatypes.JSON(raw)
	return nil
}

// TaskUpdate is used for partial updates of a task.
type TaskUpdate struct {
	Title     *string    `json:"task"`
	Steps     *[]string  `json:"subtasks"`
	PlannedAt *time.Time `json:"planned_at"`
}
