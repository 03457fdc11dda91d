package service

import (
	"context"
	"errors"
	"fmt"

	"userapi/internal/model"
	"userapi/internal/repository"
	"userapi/internal/utils"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid password")
	ErrPasswordHash       = errors.New("failed to hash password")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrUnavailable        = errors.New("database unavailable")
)

// UserService provides user management and authentication
type UserService interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	Update(ctx context.Context, id int64, req model.CreateUserRequest) (*model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type userService struct {
	userRepo repository.UserRepository
	hasher   utils.PasswordHasher
	jwtUtil  *utils.JWTUtil
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, hasher utils.PasswordHasher, jwtUtil *utils.JWTUtil) UserService {
	return &userService{
		userRepo: userRepo,
		hasher:   hasher,
		jwtUtil:  jwtUtil,
	}
}

// List returns all users
func (s *userService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return users, nil
}

// Get returns one user by ID
func (s *userService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// Create hashes the password and stores a new user
func (s *userService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// Update replaces every mutable field of the user, re-hashing the password
func (s *userService) Update(ctx context.Context, id int64, req model.CreateUserRequest) (*model.User, error) {
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           id,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// Login checks the credentials and returns a signed token
func (s *userService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", mapRepoError(err)
	}

	if !s.hasher.Check(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, user.DisplayName())
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("%w: %v", ErrPasswordHash, err)
	}
	return hash, nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrConstraintViolation):
		return fmt.Errorf("%w: %v", ErrUsernameTaken, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}
