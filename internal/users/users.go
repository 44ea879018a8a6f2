// Package users owns the local User record synced from the identity
// provider, plus the deletion-failure audit trail.
package users

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"inkwell/internal/timerange"
)

// Role is a user's authorization level.
type Role string

const (
	RoleUser   Role = "USER"
	RoleAuthor Role = "AUTHOR"
	RoleAdmin  Role = "ADMIN"
)

// ValidRole reports whether r is a recognized role value.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAuthor, RoleAdmin:
		return true
	}
	return false
}

// User mirrors an identity-provider account. ClerkID is the external
// identity reference; the provider remains the source of truth for
// credentials and sessions.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClerkID   string    `gorm:"uniqueIndex;not null" json:"clerkId"`
	Email     string    `gorm:"index" json:"email"`
	Role      Role      `gorm:"not null;default:USER" json:"role"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FailedUserDeletion is an audit row written when deleting a user's
// external identity fails, so an admin can review and a job can retry.
type FailedUserDeletion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClerkID   string    `gorm:"index;not null" json:"clerkId"`
	Error     string    `json:"error"`
	Resolved  bool      `gorm:"not null;default:false;index" json:"resolved"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrUserNotFound is returned when a user lookup fails.
var ErrUserNotFound = gorm.ErrRecordNotFound

// ErrInvalidRole is returned when a role update carries an unknown role.
var ErrInvalidRole = errors.New("invalid role")

// FindByID retrieves a user by ID.
func FindByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByClerkID retrieves a user by their external identity reference.
func FindByClerkID(db *gorm.DB, clerkID string) (*User, error) {
	var user User
	if err := db.Where("clerk_id = ?", clerkID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns all users, newest first.
func List(db *gorm.DB) ([]User, error) {
	var result []User
	if err := db.Order("created_at DESC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return result, nil
}

// CountInInterval counts users created inside the interval.
func CountInInterval(db *gorm.DB, interval *timerange.Interval) (int64, error) {
	var count int64
	err := timerange.Scope(db.Model(&User{}), interval).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return count, nil
}

// Create inserts a user record.
func Create(logger *slog.Logger, db *gorm.DB, user *User) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
}

// Upsert creates or updates the local record for a clerk id. Used by the
// identity webhook, which may replay events.
func Upsert(logger *slog.Logger, db *gorm.DB, user *User) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var existing User
		err := tx.Where("clerk_id = ?", user.ClerkID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(user).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&existing).Updates(map[string]interface{}{
			"email": user.Email,
			"role":  user.Role,
		}).Error
	})
}

// UpdateRole changes a user's role after validating the enum.
func UpdateRole(logger *slog.Logger, db *gorm.DB, id uint, role Role) error {
	if !ValidRole(role) {
		return ErrInvalidRole
	}

	user, err := FindByID(db, id)
	if err != nil {
		return err
	}

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(user).Update("role", role).Error
	})
}

// DeleteByClerkID removes the local record for a clerk id. Deleting an
// already-absent record is benign and reported via the returned flag.
func DeleteByClerkID(logger *slog.Logger, db *gorm.DB, clerkID string) (found bool, err error) {
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Where("clerk_id = ?", clerkID).Delete(&User{})
		if result.Error != nil {
			return result.Error
		}
		found = result.RowsAffected > 0
		return nil
	})
	return found, err
}

// RecordFailedDeletion writes an audit row for a failed identity deletion.
func RecordFailedDeletion(logger *slog.Logger, db *gorm.DB, clerkID string, cause error) error {
	row := FailedUserDeletion{ClerkID: clerkID, Error: cause.Error()}
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
}

// UnresolvedDeletions returns audit rows still awaiting a successful retry.
func UnresolvedDeletions(db *gorm.DB, limit int) ([]FailedUserDeletion, error) {
	var rows []FailedUserDeletion
	query := db.Where("resolved = ?", false).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error loading unresolved deletions: %w", err)
	}
	return rows, nil
}

// MarkDeletionResolved flags an audit row as successfully retried.
func MarkDeletionResolved(logger *slog.Logger, db *gorm.DB, id uint) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&FailedUserDeletion{}).Where("id = ?", id).
			Update("resolved", true).Error
	})
}
