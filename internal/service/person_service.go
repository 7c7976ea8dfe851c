package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/repository/redis"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLen = 6

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// PersonService 账号注册、注销和登录。注册先提交账号行再写 PERSON 节点，
// 节点写失败时删除账号行；注销在账本事务里删节点，图写失败时账本回滚
type PersonService struct {
	repo     *mysql.PersonRepository
	sessions *redis.SessionRepository
	graph    GraphStore
	tokens   *pkg.TokenIssuer
	retry    RetryPolicy
}

func NewPersonService(repo *mysql.PersonRepository, sessions *redis.SessionRepository, graph GraphStore, tokens *pkg.TokenIssuer, retry RetryPolicy) *PersonService {
	return &PersonService{
		repo:     repo,
		sessions: sessions,
		graph:    graph,
		tokens:   tokens,
		retry:    retry,
	}
}

func (s *PersonService) Register(ctx context.Context, in RegisterInput) (*model.Person, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if isBlank(in.FirstName) || isBlank(in.LastName) {
		return nil, pkg.NewValidationError("first and last name required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, pkg.NewValidationError("invalid email")
	}
	if len(in.Password) < minPasswordLen {
		return nil, pkg.NewValidationError("password too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	p := &model.Person{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     in.Email,
		Password:  string(hash),
	}
	err = s.repo.Create(ctx, p)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, pkg.NewConflictError("email already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("register person: %w", err)
	}

	err = s.retry.Do(ctx, func() error { return s.graph.MergePerson(ctx, p.ID) })
	if err != nil {
		if _, delErr := s.repo.Delete(context.WithoutCancel(ctx), p.ID); delErr != nil {
			pkg.L().Error("drop person after graph failure failed, ledger row has no node",
				zap.Uint64("person_id", p.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("register person node: %w", err)
	}
	return p, nil
}

// DeletePerson 删除账号，同时 DETACH DELETE 图节点
func (s *PersonService) DeletePerson(ctx context.Context, personID uint64) error {
	if personID == 0 {
		return pkg.NewValidationError("invalid person id")
	}
	n, err := s.repo.DeleteTx(ctx, personID, func() error {
		return s.retry.Do(ctx, func() error { return s.graph.DetachDeletePerson(ctx, personID) })
	})
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if n == 0 {
		return pkg.NewNotFoundError("person not found")
	}
	if err = s.sessions.DeleteToken(ctx, personID); err != nil {
		pkg.L().Warn("drop session failed", zap.Uint64("person_id", personID), zap.Error(err))
	}
	return nil
}

func (s *PersonService) FindPerson(ctx context.Context, personID uint64) (*model.Person, error) {
	p, err := s.repo.FindByID(ctx, personID)
	if err != nil {
		return nil, ledgerErr(err, "person")
	}
	return p, nil
}

// Login 校验密码后签发 token，access token 写入 redis（单点登录）
func (s *PersonService) Login(ctx context.Context, email, password string) (*pkg.Pair, error) {
	p, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkg.NewForbiddenError("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("load person: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)) != nil {
		return nil, pkg.NewForbiddenError("invalid email or password")
	}
	pair, err := s.tokens.GeneratePair(p.ID)
	if err != nil {
		return nil, err
	}
	if err = s.sessions.AddToken(ctx, p.ID, pair.AccessToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *PersonService) Logout(ctx context.Context, personID uint64) error {
	return s.sessions.DeleteToken(ctx, personID)
}

// Refresh 换新 token 并替换 redis 中的会话
func (s *PersonService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	pair, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return nil, pkg.NewForbiddenError(err.Error())
	}
	claims, err := s.tokens.ParseAccess(pair.AccessToken)
	if err != nil {
		return nil, err
	}
	if err = s.sessions.AddToken(ctx, claims.PersonID, pair.AccessToken); err != nil {
		return nil, err
	}
	return pair, nil
}
