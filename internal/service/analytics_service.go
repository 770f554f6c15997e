package service

import (
	"context"
	"time"

	"github.com/digkill/magicpic/internal/repository"
)

type AnalyticsService struct {
	users     *repository.UserRepository
	styles    *repository.StyleRepository
	creations *repository.CreationRepository
	guests    *repository.GuestRepository
	now       func() time.Time
}

func NewAnalyticsService(users *repository.UserRepository, styles *repository.StyleRepository, creations *repository.CreationRepository, guests *repository.GuestRepository) *AnalyticsService {
	return &AnalyticsService{users: users, styles: styles, creations: creations, guests: guests, now: time.Now}
}

type Stats struct {
	Users struct {
		Total    int `json:"total"`
		NewToday int `json:"new_today"`
	} `json:"users"`
	Styles struct {
		Total  int `json:"total"`
		Active int `json:"active"`
	} `json:"styles"`
	Creations struct {
		Total        int `json:"total"`
		Today        int `json:"today"`
		CreditsSpent int `json:"credits_spent"`
	} `json:"creations"`
	GuestTrials int                     `json:"guest_trials"`
	TopStyles   []repository.StyleUsage `json:"top_styles"`
}

// Stats summarises the dashboard. "Today" starts at UTC midnight.
func (s *AnalyticsService) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var st Stats
	var err error
	if st.Users.Total, st.Users.NewToday, err = s.users.Count(ctx, midnight); err != nil {
		return nil, internal(err)
	}
	if st.Styles.Total, st.Styles.Active, err = s.styles.Count(ctx); err != nil {
		return nil, internal(err)
	}
	cs, err := s.creations.Stats(ctx, midnight)
	if err != nil {
		return nil, internal(err)
	}
	st.Creations.Total, st.Creations.Today, st.Creations.CreditsSpent = cs.Total, cs.Since, cs.CreditsSpent
	if st.GuestTrials, err = s.guests.Count(ctx); err != nil {
		return nil, internal(err)
	}
	if st.TopStyles, err = s.creations.TopStyles(ctx, 5); err != nil {
		return nil, internal(err)
	}
	if st.TopStyles == nil {
		st.TopStyles = []repository.StyleUsage{}
	}
	return &st, nil
}
