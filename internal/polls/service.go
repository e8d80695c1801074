// Package polls lets staff put questions to the members and tallies votes.
package polls

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"societyhub/internal/access"
	"societyhub/internal/database"
	"societyhub/internal/model"
)

var (
	// ErrPollNotFound is returned when the poll does not exist.
	ErrPollNotFound = errors.New("poll not found")
	// ErrPollClosed is returned when voting after the end date or deactivation.
	ErrPollClosed = errors.New("poll closed")
	// ErrUnknownOption is returned for an option id outside the poll's list.
	ErrUnknownOption = errors.New("unknown poll option")
	// ErrAlreadyVoted is returned when the vote would break the uniqueness rule.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrInvalidInput is returned when a poll definition is malformed.
	ErrInvalidInput = errors.New("invalid poll input")
	// ErrNotAllowed is returned when the actor lacks the polls capability.
	ErrNotAllowed = errors.New("not allowed")
	// ErrStoreUnavailable wraps transient store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store is the subset of the database layer the service depends on.
type Store interface {
	GetPoll(ctx context.Context, id int64) (*model.Poll, error)
	ListPolls(ctx context.Context, activeOnly bool) ([]model.Poll, error)
	CreatePoll(ctx context.Context, p *model.Poll) error
	ClosePoll(ctx context.Context, id int64) error
	CastVote(ctx context.Context, v *model.PollVote, singleChoice bool) error
	PollResults(ctx context.Context, pollID int64) (map[string]int, error)
}

// CreateInput carries a staff member's poll definition.
type CreateInput struct {
	CreatedBy      int64
	Title          string
	Description    string
	Options        []string
	MultipleChoice bool
	EndDate        *time.Time
}

// Results pairs each option with its vote count.
type Results struct {
	Poll   *model.Poll    `json:"poll"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// Service runs society polls.
type Service struct {
	store  Store
	logger *zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zerolog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Create opens a poll. Staff only. Option ids are ordinals assigned here so
// votes reference a stable id rather than option text.
func (s *Service) Create(ctx context.Context, in CreateInput, actorRole model.Role) (*model.Poll, error) {
	if !access.Can(actorRole, access.CapManagePolls) {
		return nil, ErrNotAllowed
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if len(in.Options) < 2 {
		return nil, fmt.Errorf("%w: at least two options required", ErrInvalidInput)
	}
	if in.EndDate != nil && model.DateOnly(*in.EndDate).Before(model.DateOnly(s.now())) {
		return nil, fmt.Errorf("%w: end date in the past", ErrInvalidInput)
	}

	options := make([]model.PollOption, 0, len(in.Options))
	for i, text := range in.Options {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: blank option", ErrInvalidInput)
		}
		options = append(options, model.PollOption{ID: strconv.Itoa(i + 1), Text: text})
	}

	poll := &model.Poll{
		CreatedBy:      in.CreatedBy,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Options:        options,
		MultipleChoice: in.MultipleChoice,
		EndDate:        in.EndDate,
	}
	if err := s.store.CreatePoll(ctx, poll); err != nil {
		return nil, fmt.Errorf("%w: create poll: %v", ErrStoreUnavailable, err)
	}

	s.logger.Info().Int64("poll_id", poll.ID).Str("title", poll.Title).Msg("poll created")
	return poll, nil
}

// Close deactivates a poll. Staff only.
func (s *Service) Close(ctx context.Context, pollID int64, actorRole model.Role) error {
	if !access.Can(actorRole, access.CapManagePolls) {
		return ErrNotAllowed
	}
	err := s.store.ClosePoll(ctx, pollID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return ErrPollNotFound
	case errors.Is(err, database.ErrVersionConflict):
		return ErrPollClosed
	default:
		return fmt.Errorf("%w: close poll: %v", ErrStoreUnavailable, err)
	}
}

// Vote records a member's choice. Single-choice polls allow one vote per
// member; multiple-choice polls allow one vote per option.
func (s *Service) Vote(ctx context.Context, pollID, userID int64, optionID string) (*model.PollVote, error) {
	poll, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("%w: load poll: %v", ErrStoreUnavailable, err)
	}
	if !s.open(poll) {
		return nil, ErrPollClosed
	}
	if !hasOption(poll, optionID) {
		return nil, ErrUnknownOption
	}

	// Single-choice enforcement lives in the store, where the prior-vote
	// check and the insert share a transaction.
	vote := &model.PollVote{PollID: pollID, UserID: userID, OptionID: optionID}
	if err := s.store.CastVote(ctx, vote, !poll.MultipleChoice); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("%w: cast vote: %v", ErrStoreUnavailable, err)
	}

	s.logger.Info().Int64("poll_id", pollID).Int64("user_id", userID).Str("option", optionID).Msg("vote cast")
	return vote, nil
}

// TallyResults returns vote counts per option, zero-filled for options
// nobody picked.
func (s *Service) TallyResults(ctx context.Context, pollID int64) (*Results, error) {
	poll, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("%w: load poll: %v", ErrStoreUnavailable, err)
	}

	counts, err := s.store.PollResults(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("%w: tally results: %v", ErrStoreUnavailable, err)
	}

	total := 0
	filled := make(map[string]int, len(poll.Options))
	for _, opt := range poll.Options {
		filled[opt.ID] = counts[opt.ID]
		total += counts[opt.ID]
	}
	return &Results{Poll: poll, Counts: filled, Total: total}, nil
}

// List returns polls, optionally only the ones still open.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]model.Poll, error) {
	polls, err := s.store.ListPolls(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: list polls: %v", ErrStoreUnavailable, err)
	}
	return polls, nil
}

func (s *Service) open(poll *model.Poll) bool {
	if !poll.IsActive {
		return false
	}
	if poll.EndDate != nil && model.DateOnly(s.now()).After(model.DateOnly(*poll.EndDate)) {
		return false
	}
	return true
}

func hasOption(poll *model.Poll, optionID string) bool {
	for _, opt := range poll.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}
