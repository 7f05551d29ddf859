package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/types"
)

type UserRepo interface {
	Create(dbc dbctx.Context, user *domain.User) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*domain.User, error)
	EmailExists(dbc dbctx.Context, email string) (bool, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *userRepo) Create(dbc dbctx.Context, user *domain.User) error {
	return r.conn(dbc).Create(&types.UserRow{
		ID:           user.ID,
		Email:        user.Email.String(),
		PasswordHash: user.PasswordHash,
		CompanyName:  user.CompanyName,
		Role:         string(user.Role),
		Version:      user.Version,
	}).Error
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error) {
	var row types.UserRow
	if err := r.conn(dbc).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return userRowToDomain(&row)
}

func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*domain.User, error) {
	var row types.UserRow
	if err := r.conn(dbc).First(&row, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return userRowToDomain(&row)
}

func (r *userRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	var count int64
	if err := r.conn(dbc).
		Model(&types.UserRow{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func userRowToDomain(row *types.UserRow) (*domain.User, error) {
	email, err := domain.NewEmail(row.Email)
	if err != nil {
		return nil, err
	}
	role, err := domain.ParseUserRole(row.Role)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:           row.ID,
		Email:        email,
		PasswordHash: row.PasswordHash,
		CompanyName:  row.CompanyName,
		Role:         role,
		Version:      row.Version,
	}, nil
}
