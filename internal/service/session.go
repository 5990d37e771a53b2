package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	bizConfig "github.com/grand-thief-cash/voltify/internal/config"
	"github.com/grand-thief-cash/voltify/internal/consts"
)

type SessionStore interface {
	Create(ctx context.Context, username string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// RedisProvider redis 组件
type RedisProvider interface {
	Client() redis.UniversalClient
}

// SessionManager token -> username. 配置了 redis 时存 redis 并设置 TTL, 否则退化为进程内 map.
type SessionManager struct {
	*core.BaseComponent
	Redis RedisProvider `infra:"dep:redis?"`

	cfg bizConfig.SessionConfig
	now func() time.Time

	mu    sync.Mutex
	local map[string]localSession
}

type localSession struct {
	username string
	expires  time.Time
}

func NewSessionManager(cfg bizConfig.SessionConfig) *SessionManager {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "voltify:session:"
	}
	return &SessionManager{
		BaseComponent: core.NewBaseComponent(consts.COMP_SVC_SESSION),
		cfg:           cfg,
		now:           time.Now,
		local:         map[string]localSession{},
	}
}

func (s *SessionManager) Start(ctx context.Context) error {
	if s.client() == nil {
		logging.Warn(ctx, "redis not configured, sessions are kept in memory")
	}
	return s.BaseComponent.Start(ctx)
}

func (s *SessionManager) client() redis.UniversalClient {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Client()
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *SessionManager) Create(ctx context.Context, username string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	if cli := s.client(); cli != nil {
		if err := cli.Set(ctx, s.cfg.KeyPrefix+token, username, s.cfg.TTL).Err(); err != nil {
			return "", fmt.Errorf("store session: %w", err)
		}
		return token, nil
	}
	s.mu.Lock()
	s.local[token] = localSession{username: username, expires: s.now().Add(s.cfg.TTL)}
	s.mu.Unlock()
	return token, nil
}

func (s *SessionManager) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	if cli := s.client(); cli != nil {
		username, err := cli.Get(ctx, s.cfg.KeyPrefix+token).Result()
		if errors.Is(err, redis.Nil) {
			return "", ErrUnauthenticated
		}
		if err != nil {
			return "", fmt.Errorf("load session: %w", err)
		}
		return username, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.local[token]
	if !ok {
		return "", ErrUnauthenticated
	}
	if !s.now().Before(sess.expires) {
		delete(s.local, token)
		return "", ErrUnauthenticated
	}
	return sess.username, nil
}

func (s *SessionManager) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if cli := s.client(); cli != nil {
		return cli.Del(ctx, s.cfg.KeyPrefix+token).Err()
	}
	s.mu.Lock()
	delete(s.local, token)
	s.mu.Unlock()
	return nil
}
