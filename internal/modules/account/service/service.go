package service

import (
	"context"
	"errors"
	"net/http"

	"anoa.com/voteledger/internal/entity"
	"anoa.com/voteledger/internal/metrics"
	accountDto "anoa.com/voteledger/internal/modules/account/dto"
	accountRepo "anoa.com/voteledger/internal/modules/account/repository"
	"anoa.com/voteledger/pkg/apperror"
	"anoa.com/voteledger/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInsufficientFunds = apperror.New(http.StatusPaymentRequired, "insufficient_funds", "insufficient points")
	ErrInvalidAmount     = apperror.New(http.StatusBadRequest, "invalid_amount", "amount must be positive")
)

// AccountService is the only writer of point balances.
type AccountService interface {
	WithTx(tx *gorm.DB) AccountService
	// GetBalance opens the account with the default grant on first access.
	GetBalance(ctx context.Context, userID uuid.UUID) (*accountDto.AccountResponse, error)
	// Debit subtracts amount or returns ErrInsufficientFunds without side effects.
	Debit(ctx context.Context, userID uuid.UUID, amount int, referenceID string) error
	Credit(ctx context.Context, userID uuid.UUID, amount int, referenceID string) (*accountDto.AccountResponse, error)
	GetHistory(ctx context.Context, userID uuid.UUID, q dto.PageQuery) (*dto.Paginated[accountDto.PointLogResponse], error)
}

type accountService struct {
	repo          accountRepo.AccountRepository
	defaultPoints int
}

func NewAccountService(repo accountRepo.AccountRepository, defaultPoints int) AccountService {
	return &accountService{repo: repo, defaultPoints: defaultPoints}
}

func (s *accountService) WithTx(tx *gorm.DB) AccountService {
	return &accountService{repo: s.repo.WithTx(tx), defaultPoints: s.defaultPoints}
}

func (s *accountService) open(ctx context.Context, userID uuid.UUID) (*entity.Account, error) {
	account, created, err := s.repo.Open(ctx, userID, s.defaultPoints)
	if err != nil {
		return nil, err
	}
	if created && s.defaultPoints > 0 {
		metrics.PointsCredited.WithLabelValues(entity.ActionGrant).Add(float64(s.defaultPoints))
	}
	return account, nil
}

func (s *accountService) GetBalance(ctx context.Context, userID uuid.UUID) (*accountDto.AccountResponse, error) {
	account, err := s.open(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

func (s *accountService) Debit(ctx context.Context, userID uuid.UUID, amount int, referenceID string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := s.open(ctx, userID); err != nil {
		return err
	}

	if err := s.repo.Debit(ctx, userID, amount, referenceID); err != nil {
		if errors.Is(err, accountRepo.ErrInsufficientFunds) {
			return ErrInsufficientFunds
		}
		return err
	}
	return nil
}

func (s *accountService) Credit(ctx context.Context, userID uuid.UUID, amount int, referenceID string) (*accountDto.AccountResponse, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.open(ctx, userID); err != nil {
		return nil, err
	}

	account, err := s.repo.Credit(ctx, userID, amount, entity.ActionCredit, referenceID)
	if err != nil {
		return nil, err
	}
	metrics.PointsCredited.WithLabelValues(entity.ActionCredit).Add(float64(amount))
	return toAccountResponse(account), nil
}

func (s *accountService) GetHistory(ctx context.Context, userID uuid.UUID, q dto.PageQuery) (*dto.Paginated[accountDto.PointLogResponse], error) {
	q = q.Normalize()

	logs, total, err := s.repo.ListPointLogs(ctx, userID, q.Offset(), q.Limit)
	if err != nil {
		return nil, err
	}

	data := make([]accountDto.PointLogResponse, 0, len(logs))
	for _, l := range logs {
		data = append(data, accountDto.PointLogResponse{
			ID:          l.ID,
			Amount:      l.Amount,
			Action:      l.Action,
			ReferenceID: l.ReferenceID,
			CreatedAt:   l.CreatedAt,
		})
	}

	return &dto.Paginated[accountDto.PointLogResponse]{
		Data: data,
		Meta: dto.NewPaginationMeta(q, total),
	}, nil
}

func toAccountResponse(a *entity.Account) *accountDto.AccountResponse {
	return &accountDto.AccountResponse{
		UserID:    a.UserID,
		Points:    a.Points,
		UpdatedAt: a.UpdatedAt,
	}
}
