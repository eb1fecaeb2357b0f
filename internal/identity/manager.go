// Package identity создает учетные записи и проверяет учетные данные.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/forms"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
)

// Fields - необязательные поля пользователя. Nil-флаги берут значения по умолчанию.
type Fields struct {
	Username     string
	FirstName    string
	LastName     string
	MobileNumber string
	IsActive     *bool
	IsStaff      *bool
	IsSuperuser  *bool
}

// userInput описывает ограничения на поля учетной записи.
type userInput struct {
	Email        string `form:"email" validate:"required,email,max=254"`
	Username     string `form:"username" validate:"max=255"`
	FirstName    string `form:"first_name" validate:"max=50"`
	LastName     string `form:"last_name" validate:"max=50"`
	MobileNumber string `form:"mobile_number" validate:"max=15"`
}

// Manager - фабрика пользователей поверх UserStore.
type Manager struct {
	users storage.UserStore
	cost  int
	log   logrus.FieldLogger
}

// Option настраивает Manager.
type Option func(*Manager)

// WithHashCost задает стоимость bcrypt.
func WithHashCost(cost int) Option {
	return func(m *Manager) {
		m.cost = cost
	}
}

// NewManager создает Manager.
func NewManager(users storage.UserStore, log logrus.FieldLogger, opts ...Option) *Manager {
	m := &Manager{users: users, cost: bcrypt.DefaultCost, log: log}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NormalizeEmail приводит доменную часть адреса к нижнему регистру.
// Локальная часть не меняется.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + cases.Fold().String(email[at+1:])
}

// CreateUser создает обычного пользователя: is_staff и is_superuser по умолчанию false.
func (m *Manager) CreateUser(ctx context.Context, email, password string, extra Fields) (*domain.User, error) {
	if extra.IsStaff == nil {
		extra.IsStaff = boolPtr(false)
	}
	if extra.IsSuperuser == nil {
		extra.IsSuperuser = boolPtr(false)
	}
	return m.create(ctx, email, password, extra)
}

// CreateSuperuser создает администратора: is_staff и is_superuser всегда true.
func (m *Manager) CreateSuperuser(ctx context.Context, email, password string, extra Fields) (*domain.User, error) {
	extra.IsStaff = boolPtr(true)
	extra.IsSuperuser = boolPtr(true)
	return m.create(ctx, email, password, extra)
}

func (m *Manager) create(ctx context.Context, email, password string, extra Fields) (*domain.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, domain.NewValidationError("email", "Valid e-mail address not provided.")
	}

	input := userInput{
		Email:        NormalizeEmail(email),
		Username:     strings.TrimSpace(extra.Username),
		FirstName:    strings.TrimSpace(extra.FirstName),
		LastName:     strings.TrimSpace(extra.LastName),
		MobileNumber: strings.TrimSpace(extra.MobileNumber),
	}
	if err := forms.Validate(&input); err != nil {
		return nil, err
	}

	hash, err := m.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        input.Email,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		MobileNumber: input.MobileNumber,
		PasswordHash: hash,
		IsActive:     extra.IsActive == nil || *extra.IsActive,
		IsStaff:      *extra.IsStaff,
		IsSuperuser:  *extra.IsSuperuser,
	}

	created, err := m.users.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"user_id":   created.ID,
		"staff":     created.IsStaff,
		"superuser": created.IsSuperuser,
	}).Info("user created")
	return created, nil
}

// hashPassword хэширует пароль. Пустой пароль дает непригодный для входа хэш.
func (m *Manager) hashPassword(password string) (string, error) {
	if password == "" {
		return domain.UnusablePasswordPrefix + uuid.NewString(), nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.NewValidationError("password", "Ensure this value has at most 72 bytes.")
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate проверяет email и пароль. Любая неудача - domain.ErrInvalidCredentials.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := m.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive || !user.HasUsablePassword() {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := m.users.UpdateLastLogin(ctx, user.ID); err != nil {
		m.log.WithError(err).WithField("user_id", user.ID).Warn("failed to stamp last login")
	}
	return user, nil
}

func boolPtr(b bool) *bool {
	return &b
}
