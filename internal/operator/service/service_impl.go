package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressline/internal/clock"
	"github.com/smallbiznis/pressline/internal/operator/domain"
	"github.com/smallbiznis/pressline/internal/operator/password"
	"github.com/smallbiznis/pressline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionTTL = 12 * time.Hour

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	hash  func(string) (string, error)
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("operator.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		hash:  password.Hash,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Operator, error) {
	return s.create(ctx, s.db, req)
}

func (s *Service) create(ctx context.Context, tx *gorm.DB, req domain.CreateRequest) (*domain.Operator, error) {
	login := strings.ToLower(strings.TrimSpace(req.Login))
	if login == "" {
		return nil, domain.ErrInvalidLogin
	}
	if len(req.Password) < 8 {
		return nil, domain.ErrInvalidPassword
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		fullName = login
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	op := &domain.Operator{
		ID:           s.genID.Generate().Int64(),
		Login:        login,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, tx, op); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateLogin
		}
		return nil, err
	}
	s.log.Info("operator created", zap.Int64("operator_id", op.ID), zap.String("login", op.Login))
	return op, nil
}

// EnsureBootstrapAdmin creates the first operator when none exist.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, req domain.CreateRequest) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.Count(ctx, tx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if _, err := s.create(ctx, tx, req); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (s *Service) Login(ctx context.Context, login, secret string) (*domain.LoginResult, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" || secret == "" {
		return nil, domain.ErrInvalidCredentials
	}

	op, err := s.repo.FindByLogin(ctx, s.db, login)
	if err != nil {
		return nil, err
	}
	if op == nil || !op.IsActive || !password.Verify(secret, op.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	record := &domain.SessionRecord{
		ID:         s.genID.Generate().Int64(),
		OperatorID: op.ID,
		TokenHash:  hashToken(token),
		ExpiresAt:  now.Add(sessionTTL),
		CreatedAt:  now,
	}
	if err := s.repo.InsertSession(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.log.Info("operator logged in", zap.Int64("operator_id", op.ID))
	return &domain.LoginResult{
		Token:   token,
		Session: toSession(record, op),
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, domain.ErrInvalidSession
	}
	record, err := s.repo.FindSessionByTokenHash(ctx, s.db, hashToken(token))
	if err != nil {
		return domain.Session{}, err
	}
	if record == nil || record.RevokedAt != nil {
		return domain.Session{}, domain.ErrInvalidSession
	}
	if !s.clock.Now().Before(record.ExpiresAt) {
		return domain.Session{}, domain.ErrSessionExpired
	}

	op, err := s.repo.FindByID(ctx, s.db, record.OperatorID)
	if err != nil {
		return domain.Session{}, err
	}
	if op == nil || !op.IsActive {
		return domain.Session{}, domain.ErrInvalidSession
	}
	return toSession(record, op), nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidSession
	}
	return s.repo.RevokeSession(ctx, s.db, hashToken(token), s.clock.Now().UTC())
}

func toSession(record *domain.SessionRecord, op *domain.Operator) domain.Session {
	return domain.Session{
		ID:         record.ID,
		OperatorID: op.ID,
		Login:      op.Login,
		FullName:   op.FullName,
		ExpiresAt:  record.ExpiresAt,
	}
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
