package authsvc

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/K-i-Q/credit-chat-companion/model"
	userrepo "github.com/K-i-Q/credit-chat-companion/repository/user"
	"github.com/K-i-Q/credit-chat-companion/util/hash"
	jwtutil "github.com/K-i-Q/credit-chat-companion/util/jwt"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid credentials")
	ErrNotFound     = errors.New("user not found")
	ErrSelfTarget   = errors.New("cannot target your own account")
	ErrBadRole      = errors.New("invalid role")
)

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)

	ListUsers(ctx context.Context) ([]model.AdminUserRow, error)
	SetRole(ctx context.Context, userID, role string) error
	DeleteUser(ctx context.Context, actorID, userID string) error
}

type service struct {
	ur     userrepo.Repo
	secret string
}

func New(ur userrepo.Repo, secret string) Service { return &service{ur: ur, secret: secret} }

func (s *service) Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error) {
	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	u := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         model.RoleUser,
		PasswordHash: hashed,
	}
	if err := s.ur.Create(ctx, u); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := jwtutil.Issue(s.secret, u.ID, u.Email, u.Role, 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	u, err := s.ur.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", ErrInvalidCreds
	}
	if !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", ErrInvalidCreds
	}

	_ = s.ur.TouchSignIn(ctx, u.ID)

	token, err := jwtutil.Issue(s.secret, u.ID, u.Email, u.Role, 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *service) ListUsers(ctx context.Context) ([]model.AdminUserRow, error) {
	return s.ur.ListWithWallets(ctx)
}

func (s *service) SetRole(ctx context.Context, userID, role string) error {
	if role != model.RoleUser && role != model.RoleAdmin {
		return ErrBadRole
	}
	ok, err := s.ur.SetRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *service) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return ErrSelfTarget
	}
	ok, err := s.ur.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
