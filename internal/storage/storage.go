// Package storage wires GORM over sqlite and exposes the two repositories
// the handlers work against.
package storage

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"calculations-service/internal/models"
)

// ErrNotFound is returned when a record with the requested id does not
// exist. Handlers translate it to 404.
var ErrNotFound = errors.New("record not found")

// New opens (or creates) the sqlite database at filepath and migrates the
// schema. Pass ":memory:" for an ephemeral database in tests.
func New(filepath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(filepath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer; a one-connection pool also keeps
	// ":memory:" databases from being re-created per connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Calculation{}); err != nil {
		return nil, err
	}
	return db, nil
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users { return &Users{db: db} }

func (r *Users) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *Users) ByID(id string) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// ByLogin finds a user by username or email, the two identifiers the login
// form accepts interchangeably.
func (r *Users) ByLogin(login string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("username = ? OR email = ?", login, login).First(&u).Error; err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// UsernameTaken reports whether another user (excluding excludeID) already
// holds the username.
func (r *Users) UsernameTaken(username, excludeID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("username = ? AND id <> ?", username, excludeID).
		Count(&count).Error
	return count > 0, err
}

// EmailTaken reports whether another user (excluding excludeID) already
// holds the email.
func (r *Users) EmailTaken(email, excludeID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *Users) Save(u *models.User) error {
	return r.db.Save(u).Error
}

type Calculations struct {
	db *gorm.DB
}

func NewCalculations(db *gorm.DB) *Calculations { return &Calculations{db: db} }

func (r *Calculations) Create(c *models.Calculation) error {
	return r.db.Create(c).Error
}

func (r *Calculations) ByID(id string) (*models.Calculation, error) {
	var c models.Calculation
	if err := r.db.First(&c, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// ByUser lists a user's calculations, oldest first, with offset/limit
// pagination.
func (r *Calculations) ByUser(userID string, offset, limit int) ([]models.Calculation, error) {
	var out []models.Calculation
	err := r.db.Where("user_id = ?", userID).
		Order("created_at").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *Calculations) Save(c *models.Calculation) error {
	return r.db.Save(c).Error
}

func (r *Calculations) Delete(id string) error {
	res := r.db.Delete(&models.Calculation{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
