package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;size:191;not null" json:"email"`
	FirstName    string     `gorm:"size:64" json:"first_name"`
	LastName     string     `gorm:"size:64" json:"last_name"`
	PasswordHash string     `gorm:"size:191;not null" json:"-"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	IsVerified   bool       `gorm:"default:false" json:"is_verified"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Calculation is stored single-table: the Type discriminator selects the
// arithmetic rule, Inputs holds the operands in order. The result is never
// persisted; it is recomputed from (Type, Inputs) on every read.
type Calculation struct {
	ID        string       `gorm:"primaryKey;size:36" json:"id"`
	Type      string       `gorm:"size:50;not null" json:"type"`
	Inputs    Float64Slice `gorm:"type:text;not null" json:"inputs"`
	UserID    *string      `gorm:"size:36;index" json:"user_id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (c *Calculation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Float64Slice stores a variable-length numeric array in a single TEXT
// column, since sqlite has no native array type.
type Float64Slice []float64

func (s Float64Slice) Value() (driver.Value, error) {
	b, err := json.Marshal([]float64(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Float64Slice) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]float64)(s))
	case string:
		return json.Unmarshal([]byte(v), (*[]float64)(s))
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}
}
