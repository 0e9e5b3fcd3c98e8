package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bookshelf/bookshelf/database"
	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/logger"
	"github.com/bookshelf/bookshelf/util/common"
	"github.com/bookshelf/bookshelf/util/crypto"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minNicknameLen = 3
	maxNicknameLen = 80
	minPasswordLen = 6
	maxPasswordLen = 72
)

// UserService registers accounts, verifies credentials and removes accounts together
// with their books.
type UserService struct {
	db     *gorm.DB
	books  database.BookRepository
	hasher *crypto.PasswordHasher
}

func NewUserService(db *gorm.DB, books database.BookRepository, hasher *crypto.PasswordHasher) *UserService {
	return &UserService{db: db, books: books, hasher: hasher}
}

func errUserNotFound() error {
	return common.NewError(common.ErrNotFound, "errors.userNotFound")
}

func validateCredentials(nickname, password string) error {
	if nickname == "" || password == "" {
		return common.NewError(common.ErrValidation, "errors.credentialsRequired")
	}
	if utf8.RuneCountInString(nickname) < minNicknameLen {
		return common.NewError(common.ErrValidation, "errors.nicknameTooShort", "Min=="+strconv.Itoa(minNicknameLen))
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLen {
		return common.NewError(common.ErrValidation, "errors.nicknameTooLong", "Max=="+strconv.Itoa(maxNicknameLen))
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return common.NewError(common.ErrValidation, "errors.passwordTooShort", "Min=="+strconv.Itoa(minPasswordLen))
	}
	if len(password) > maxPasswordLen {
		return common.NewError(common.ErrValidation, "errors.passwordTooLong", "Max=="+strconv.Itoa(maxPasswordLen))
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, nickname, password string) (*model.User, error) {
	nickname = strings.TrimSpace(nickname)
	if err := validateCredentials(nickname, password); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&model.User{}).Where("nickname = ?", nickname).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, common.NewError(common.ErrConflict, "errors.nicknameTaken")
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, common.NewError(common.ErrValidation, "errors.passwordTooLong", "Max=="+strconv.Itoa(maxPasswordLen))
	}
	if err != nil {
		return nil, err
	}

	user := &model.User{Nickname: nickname, PasswordHash: hash}
	err = db.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, common.NewError(common.ErrConflict, "errors.nicknameTaken")
	}
	if err != nil {
		return nil, err
	}
	logger.Infof("registered user %s (id %d)", user.Nickname, user.Id)
	return user, nil
}

// Authenticate returns the user matching the credentials. Unknown nicknames and wrong
// passwords fail with the same error and take the same time.
func (s *UserService) Authenticate(ctx context.Context, nickname, password string) (*model.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || password == "" {
		return nil, common.NewError(common.ErrValidation, "errors.credentialsRequired")
	}

	user := &model.User{}
	err := s.db.WithContext(ctx).Where("nickname = ?", nickname).First(user).Error
	if database.IsNotFound(err) {
		s.hasher.CheckMissing(password)
		return nil, common.NewError(common.ErrAuth, "errors.invalidCredentials")
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Check(user.PasswordHash, password) {
		return nil, common.NewError(common.ErrAuth, "errors.invalidCredentials")
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*model.User, error) {
	if id <= 0 {
		return nil, errUserNotFound()
	}
	user := &model.User{}
	err := s.db.WithContext(ctx).First(user, id).Error
	if database.IsNotFound(err) {
		return nil, errUserNotFound()
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUserByNickname(ctx context.Context, nickname string) (*model.User, error) {
	user := &model.User{}
	err := s.db.WithContext(ctx).Where("nickname = ?", strings.TrimSpace(nickname)).First(user).Error
	if database.IsNotFound(err) {
		return nil, errUserNotFound()
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) CountBooks(ctx context.Context, id int) (int64, error) {
	return s.books.Count(ctx, id)
}

// DeleteUser removes the user and every book they own in one transaction.
func (s *UserService) DeleteUser(ctx context.Context, id int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := &model.User{}
		err := tx.First(user, id).Error
		if database.IsNotFound(err) {
			return errUserNotFound()
		}
		if err != nil {
			return err
		}
		if err := s.books.WithTx(tx).DeleteByOwner(ctx, id); err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return err
	}
	logger.Infof("deleted user %d and their books", id)
	return nil
}
