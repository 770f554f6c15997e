package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/repository"
)

type CreationService struct {
	creations *repository.CreationRepository
	users     *repository.UserRepository
	signer    URLSigner
	log       *zap.Logger
}

func NewCreationService(creations *repository.CreationRepository, users *repository.UserRepository, signer URLSigner, log *zap.Logger) *CreationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CreationService{creations: creations, users: users, signer: signer, log: log}
}

// Mine returns the user's history, newest first, with fresh presigned URLs.
func (s *CreationService) Mine(ctx context.Context, userID int64, page repository.Page) ([]CreationView, error) {
	list, err := s.creations.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, internal(err)
	}
	balance, err := s.users.Balance(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	p := presenter{signer: s.signer, log: s.log}
	out := make([]CreationView, 0, len(list))
	for i := range list {
		out = append(out, p.creation(ctx, &list[i], &balance))
	}
	return out, nil
}

// Delete hides a creation from its owner. Another user's creation looks missing.
func (s *CreationService) Delete(ctx context.Context, userID, creationID int64) error {
	if err := s.creations.SoftDelete(ctx, creationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reject(CodeNotFound, "Creation not found")
		}
		return internal(err)
	}
	return nil
}

func (s *CreationService) Recent(ctx context.Context, page repository.Page) ([]CreationView, error) {
	list, err := s.creations.ListRecent(ctx, page)
	if err != nil {
		return nil, internal(err)
	}
	p := presenter{signer: s.signer, log: s.log}
	out := make([]CreationView, 0, len(list))
	for i := range list {
		out = append(out, p.creation(ctx, &list[i], nil))
	}
	return out, nil
}
