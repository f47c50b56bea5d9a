package logics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskly-server/internal/models"
	"taskly-server/internal/utils"
)

var (
	ErrNoAccount     = errors.New("no account found with that email")
	ErrCodeNotFound  = errors.New("reset code not found")
	ErrCodeExpired   = errors.New("reset code expired")
	ErrCodeInvalid   = errors.New("reset code invalid")
	ErrEmailDelivery = errors.New("failed to send email")
)

const (
	resetCodeKeyPrefix = "reset_code:"
	// resetCodeValidity is how long a code is accepted.
	resetCodeValidity = 10 * time.Minute
	// resetCodeRetention keeps expired codes around long enough to
	// answer "expired" instead of "not found".
	resetCodeRetention = 24 * time.Hour
)

// resetCodeRecord is the value stored per email in redis.
type resetCodeRecord struct {
	Code      string `json:"code"`
	ExpiresAt int64  `json:"expires_at"`
}

// UserDirectory resolves accounts by email for the reset flow.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// GormUserDirectory is the postgres-backed UserDirectory.
type GormUserDirectory struct {
	db *gorm.DB
}

// NewGormUserDirectory creates a UserDirectory over the users table.
func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (d *GormUserDirectory) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	result := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return fmt.Errorf("update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNoAccount
	}
	return nil
}

// ResetService runs the password reset code flow: issue a code over
// email, verify it, then update the password and consume the code.
type ResetService struct {
	redis  redis.Cmdable
	users  UserDirectory
	email  *utils.EmailService
	ids    *utils.UniqueIDService
	logger *zap.Logger
}

// NewResetService creates a new ResetService
func NewResetService(rdb redis.Cmdable, users UserDirectory, email *utils.EmailService, ids *utils.UniqueIDService, logger *zap.Logger) *ResetService {
	return &ResetService{
		redis:  rdb,
		users:  users,
		email:  email,
		ids:    ids,
		logger: logger,
	}
}

// SendResetCode issues a 6-digit code for the account behind email and
// mails it. Reissuing overwrites any previous code.
func (s *ResetService) SendResetCode(ctx context.Context, email string) error {
	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		return err
	}

	code, err := s.ids.GenerateResetCode()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}

	record := resetCodeRecord{
		Code:      code,
		ExpiresAt: time.Now().Add(resetCodeValidity).UnixMilli(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode reset code: %w", err)
	}

	if err := s.redis.Set(ctx, resetCodeKeyPrefix+email, raw, resetCodeRetention).Err(); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	if err := s.email.SendResetCodeEmail(email, code); err != nil {
		s.logger.Error("Reset code email failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	s.logger.Info("Reset code sent", zap.String("email", email))
	return nil
}

// VerifyResetCode checks the code issued for email. Expired codes are
// deleted on sight.
func (s *ResetService) VerifyResetCode(ctx context.Context, email, code string) error {
	raw, err := s.redis.Get(ctx, resetCodeKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCodeNotFound
	}
	if err != nil {
		return fmt.Errorf("load reset code: %w", err)
	}

	var record resetCodeRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return fmt.Errorf("decode reset code: %w", err)
	}

	if time.Now().UnixMilli() > record.ExpiresAt {
		s.redis.Del(ctx, resetCodeKeyPrefix+email)
		return ErrCodeExpired
	}
	if record.Code != code {
		return ErrCodeInvalid
	}
	return nil
}

// ResetPassword hashes and stores the new password, then consumes the
// reset code.
func (s *ResetService) ResetPassword(ctx context.Context, email, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, email, string(hash)); err != nil {
		return err
	}

	if err := s.redis.Del(ctx, resetCodeKeyPrefix+email).Err(); err != nil {
		s.logger.Warn("Failed to delete consumed reset code", zap.String("email", email), zap.Error(err))
	}

	s.logger.Info("Password updated", zap.String("email", email))
	return nil
}
