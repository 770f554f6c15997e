package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/ledger"
	"github.com/digkill/magicpic/internal/models"
	"github.com/digkill/magicpic/internal/repository"
)

// UserService backs the admin console's user pages.
type UserService struct {
	users        *repository.UserRepository
	transactions *repository.TransactionRepository
	ledger       *ledger.Ledger
	auth         *AuthService
	log          *zap.Logger
}

func NewUserService(users *repository.UserRepository, transactions *repository.TransactionRepository, l *ledger.Ledger, authSvc *AuthService, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{users: users, transactions: transactions, ledger: l, auth: authSvc, log: log}
}

type UserPage struct {
	Users []models.User `json:"users"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter) (*UserPage, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, internal(err)
	}
	if users == nil {
		users = []models.User{}
	}
	page := filter.Page
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 || page.Limit > 200 {
		page.Limit = 50
	}
	return &UserPage{Users: users, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, internal(err)
	}
	if u == nil {
		return nil, reject(CodeNotFound, "User not found")
	}
	return u, nil
}

// Create registers a user on an operator's behalf; it follows the signup rules
// but does not open a session.
func (s *UserService) Create(ctx context.Context, in SignupInput) (*models.User, error) {
	sess, err := s.auth.Signup(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.auth.Logout(ctx, sess.User.ID); err != nil {
		s.log.Warn("revoke admin-created session", zap.Int64("user_id", sess.User.ID), zap.Error(err))
	}
	return sess.User, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return internal(err)
	}
	if u == nil {
		return reject(CodeNotFound, "User not found")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return internal(err)
	}
	s.log.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

type CreditAdjustment struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// AdjustCredits applies an operator grant or deduction and returns the new balance.
func (s *UserService) AdjustCredits(ctx context.Context, id int64, adj CreditAdjustment) (int, error) {
	if adj.Delta == 0 {
		return 0, reject(CodeValidation, "delta must not be zero")
	}
	balance, err := s.ledger.Adjust(ctx, id, adj.Delta, strings.TrimSpace(adj.Reason))
	if err != nil {
		if errors.Is(err, ledger.ErrUserNotFound) {
			return 0, reject(CodeNotFound, "User not found")
		}
		return 0, internal(err)
	}
	s.log.Info("credits adjusted", zap.Int64("user_id", id), zap.Int("delta", adj.Delta), zap.Int("balance", balance))
	return balance, nil
}

func (s *UserService) Transactions(ctx context.Context, id int64, page repository.Page) ([]models.CreditTransaction, error) {
	txs, err := s.transactions.ListByUser(ctx, id, page)
	if err != nil {
		return nil, internal(err)
	}
	if txs == nil {
		txs = []models.CreditTransaction{}
	}
	return txs, nil
}
