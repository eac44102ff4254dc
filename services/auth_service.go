package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/images"
)

type IAuthService interface {
	Signup(email, fullName, password string) (domain.User, string, error)
	Login(email, password string) (domain.User, string, error)
	CheckAuth(userID string) (domain.User, error)
	UpdateProfile(userID, fullName, bio, profilePicPayload string) (domain.User, error)
}

type AuthService struct {
	users  contract.IUserRepository
	tokens auth.TokenIssuer
	images *images.Store
}

func NewAuthService(users contract.IUserRepository, tokens auth.TokenIssuer,
	images *images.Store) *AuthService {
	return &AuthService{users: users, tokens: tokens, images: images}
}

func (s *AuthService) Signup(email, fullName, password string) (domain.User, string, error) {
	req := auth.SignupRequest{Email: email, FullName: fullName, Password: password}

	// Validate business rules before any expensive cryptographic work.
	if err := auth.ValidateSignup(req); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}

	// Hashing happens in the service layer so the repository never sees
	// a plain password.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(user); err != nil {
		return domain.User{}, "", err // propagates ErrUserAlreadyExists
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(email, password string) (domain.User, string, error) {
	if err := auth.ValidateLogin(auth.LoginRequest{Email: email, Password: password}); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks.
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

func (s *AuthService) CheckAuth(userID string) (domain.User, error) {
	return s.users.GetUserByID(userID)
}

// UpdateProfile applies partial changes; empty fields keep their current
// value. A profile picture arrives as an inline payload and is stored
// through the image store, only its reference is persisted.
func (s *AuthService) UpdateProfile(userID, fullName, bio, profilePicPayload string) (domain.User, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return domain.User{}, err
	}

	if fullName != "" {
		user.FullName = fullName
	}
	if bio != "" {
		user.Bio = bio
	}
	if profilePicPayload != "" {
		ref, err := s.images.Save(profilePicPayload)
		if err != nil {
			return domain.User{}, err
		}
		user.ProfilePic = ref
	}

	if err := s.users.UpdateUser(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}
