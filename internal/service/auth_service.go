package service

import (
	"errors"

	"sika/config"
	"sika/internal/auth"
	"sika/internal/domain"
	"sika/internal/models"
	"sika/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists  = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid email or password")
)

type AuthService struct {
	cfg    *config.Config
	agents *repository.AgentRepository
}

func NewAuthService(cfg *config.Config, agents *repository.AgentRepository) *AuthService {
	return &AuthService{cfg: cfg, agents: agents}
}

func (s *AuthService) Register(name, email, phone, momoNumber, password string) (*models.Agent, string, string, error) {
	_, err := s.agents.GetByEmail(email)
	if err == nil {
		return nil, "", "", ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", "", err
	}
	a := &models.Agent{
		Name:         name,
		Email:        email,
		Phone:        phone,
		MomoNumber:   momoNumber,
		PasswordHash: string(hash),
		Role:         domain.RoleAgent,
	}
	if err := s.agents.Create(a); err != nil {
		return nil, "", "", err
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, a.ID, a.Email, a.Role)
	if err != nil {
		return a, "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, a.ID)
	if err != nil {
		return a, access, "", err
	}
	return a, access, refresh, nil
}

func (s *AuthService) Login(email, password string) (*models.Agent, string, string, error) {
	a, err := s.agents.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrInvalidCreds
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCreds
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, a.ID, a.Email, a.Role)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, a.ID)
	if err != nil {
		return nil, "", "", err
	}
	return a, access, refresh, nil
}
