package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/dao"
	"github.com/grand-thief-cash/voltify/internal/model"
)

// AuthService 注册/登录/登出; 登录成功后由 SessionStore 签发 token
type AuthService struct {
	*core.BaseComponent
	UserDao  dao.UserDao  `infra:"dep:user_dao"`
	Sessions SessionStore `infra:"dep:session_store"`

	cost int
}

func NewAuthService(cost int) *AuthService {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		BaseComponent: core.NewBaseComponent(consts.COMP_SVC_AUTH),
		cost:          cost,
	}
}

func credentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", &ValidationError{Reason: "Missing username or password"}
	}
	return username, nil
}

func (a *AuthService) Register(ctx context.Context, username, password string) error {
	username, err := credentials(username, password)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return &ValidationError{Field: "password", Reason: "is too long"}
		}
		return fmt.Errorf("hash password: %w", err)
	}
	err = a.UserDao.Create(ctx, &model.User{Username: username, PasswordHash: string(hash), CreatedAt: time.Now().UTC()})
	if errors.Is(err, dao.ErrDuplicate) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	logging.Info(ctx, "user registered", zap.String("username", username))
	return nil
}

// Login 用户不存在与密码错误返回同一个错误
func (a *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	username, err := credentials(username, password)
	if err != nil {
		return "", err
	}
	u, err := a.UserDao.FindByUsername(ctx, username)
	if errors.Is(err, dao.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return a.Sessions.Create(ctx, u.Username)
}

func (a *AuthService) Logout(ctx context.Context, token string) error {
	return a.Sessions.Delete(ctx, token)
}

// Authenticate token -> owner
func (a *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	return a.Sessions.Resolve(ctx, token)
}
