package polls

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"societyhub/internal/database"
	"societyhub/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetPoll(ctx context.Context, id int64) (*model.Poll, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Poll), args.Error(1)
}

func (m *mockStore) ListPolls(ctx context.Context, activeOnly bool) ([]model.Poll, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]model.Poll), args.Error(1)
}

func (m *mockStore) CreatePoll(ctx context.Context, p *model.Poll) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockStore) ClosePoll(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) CastVote(ctx context.Context, v *model.PollVote, singleChoice bool) error {
	return m.Called(ctx, v, singleChoice).Error(0)
}

func (m *mockStore) PollResults(ctx context.Context, pollID int64) (map[string]int, error) {
	args := m.Called(ctx, pollID)
	return args.Get(0).(map[string]int), args.Error(1)
}

func newTestService(store *mockStore) *Service {
	logger := zerolog.New(io.Discard)
	return NewService(store, &logger)
}

func openPoll(multiple bool) *model.Poll {
	return &model.Poll{
		ID:    51,
		Title: "Gym hours",
		Options: []model.PollOption{
			{ID: "1", Text: "Open 5am"},
			{ID: "2", Text: "Open 6am"},
		},
		MultipleChoice: multiple,
		IsActive:       true,
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("AssignsOrdinalOptionIDs", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		store.On("CreatePoll", ctx, mock.AnythingOfType("*model.Poll")).
			Run(func(args mock.Arguments) { args.Get(1).(*model.Poll).ID = 51 }).
			Return(nil)

		p, err := svc.Create(ctx, CreateInput{
			CreatedBy: 3,
			Title:     "Gym hours",
			Options:   []string{"Open 5am", " Open 6am "},
		}, model.RoleSecretary)
		assert.NoError(t, err)
		assert.Equal(t, []model.PollOption{
			{ID: "1", Text: "Open 5am"},
			{ID: "2", Text: "Open 6am"},
		}, p.Options)
	})

	t.Run("MemberDenied", func(t *testing.T) {
		svc := newTestService(new(mockStore))
		_, err := svc.Create(ctx, CreateInput{Title: "x", Options: []string{"a", "b"}}, model.RoleMember)
		assert.ErrorIs(t, err, ErrNotAllowed)
	})

	t.Run("InvalidDefinitions", func(t *testing.T) {
		svc := newTestService(new(mockStore))

		_, err := svc.Create(ctx, CreateInput{Title: " ", Options: []string{"a", "b"}}, model.RoleAdmin)
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = svc.Create(ctx, CreateInput{Title: "x", Options: []string{"only one"}}, model.RoleAdmin)
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = svc.Create(ctx, CreateInput{Title: "x", Options: []string{"a", "  "}}, model.RoleAdmin)
		assert.ErrorIs(t, err, ErrInvalidInput)

		past := time.Now().AddDate(0, 0, -1)
		_, err = svc.Create(ctx, CreateInput{Title: "x", Options: []string{"a", "b"}, EndDate: &past}, model.RoleAdmin)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestVote(t *testing.T) {
	ctx := context.Background()

	t.Run("SingleChoiceFirstVote", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		store.On("GetPoll", ctx, int64(51)).Return(openPoll(false), nil)
		store.On("CastVote", ctx, mock.AnythingOfType("*model.PollVote"), true).Return(nil)

		v, err := svc.Vote(ctx, 51, 7, "1")
		assert.NoError(t, err)
		assert.Equal(t, "1", v.OptionID)
		store.AssertExpectations(t)
	})

	t.Run("SingleChoiceSecondVoteRejected", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		store.On("GetPoll", ctx, int64(51)).Return(openPoll(false), nil)
		store.On("CastVote", ctx, mock.Anything, true).Return(database.ErrDuplicate)

		_, err := svc.Vote(ctx, 51, 7, "2")
		assert.ErrorIs(t, err, ErrAlreadyVoted)
	})

	t.Run("MultipleChoiceAllowsSecondOption", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		store.On("GetPoll", ctx, int64(51)).Return(openPoll(true), nil)
		store.On("CastVote", ctx, mock.AnythingOfType("*model.PollVote"), false).Return(nil)

		_, err := svc.Vote(ctx, 51, 7, "2")
		assert.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("MultipleChoiceSameOptionTwiceRejected", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		store.On("GetPoll", ctx, int64(51)).Return(openPoll(true), nil)
		store.On("CastVote", ctx, mock.Anything, false).Return(database.ErrDuplicate)

		_, err := svc.Vote(ctx, 51, 7, "1")
		assert.ErrorIs(t, err, ErrAlreadyVoted)
	})

	t.Run("UnknownOption", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)
		store.On("GetPoll", ctx, int64(51)).Return(openPoll(false), nil)

		_, err := svc.Vote(ctx, 51, 7, "9")
		assert.ErrorIs(t, err, ErrUnknownOption)
	})

	t.Run("DeactivatedPollClosed", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		poll := openPoll(false)
		poll.IsActive = false
		store.On("GetPoll", ctx, int64(51)).Return(poll, nil)

		_, err := svc.Vote(ctx, 51, 7, "1")
		assert.ErrorIs(t, err, ErrPollClosed)
	})

	t.Run("PastEndDateClosed", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		poll := openPoll(false)
		ended := time.Now().AddDate(0, 0, -1)
		poll.EndDate = &ended
		store.On("GetPoll", ctx, int64(51)).Return(poll, nil)

		_, err := svc.Vote(ctx, 51, 7, "1")
		assert.ErrorIs(t, err, ErrPollClosed)
	})

	t.Run("EndDateTodayStillOpen", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		poll := openPoll(false)
		today := time.Now()
		poll.EndDate = &today
		store.On("GetPoll", ctx, int64(51)).Return(poll, nil)
		store.On("CastVote", ctx, mock.Anything, true).Return(nil)

		_, err := svc.Vote(ctx, 51, 7, "1")
		assert.NoError(t, err)
	})
}

func TestTallyResults(t *testing.T) {
	ctx := context.Background()

	t.Run("ZeroFillsUnpickedOptions", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)

		store.On("GetPoll", ctx, int64(51)).Return(openPoll(false), nil)
		store.On("PollResults", ctx, int64(51)).Return(map[string]int{"1": 8}, nil)

		res, err := svc.TallyResults(ctx, 51)
		assert.NoError(t, err)
		assert.Equal(t, map[string]int{"1": 8, "2": 0}, res.Counts)
		assert.Equal(t, 8, res.Total)
	})

	t.Run("UnknownPoll", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)
		store.On("GetPoll", ctx, int64(99)).Return(nil, database.ErrNotFound)

		_, err := svc.TallyResults(ctx, 99)
		assert.ErrorIs(t, err, ErrPollNotFound)
	})
}

func TestClose(t *testing.T) {
	ctx := context.Background()

	t.Run("StaffCloses", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)
		store.On("ClosePoll", ctx, int64(51)).Return(nil)

		assert.NoError(t, svc.Close(ctx, 51, model.RoleAdmin))
	})

	t.Run("DoubleCloseReportsClosed", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store)
		store.On("ClosePoll", ctx, int64(51)).Return(database.ErrVersionConflict)

		assert.ErrorIs(t, svc.Close(ctx, 51, model.RoleAdmin), ErrPollClosed)
	})

	t.Run("MemberDenied", func(t *testing.T) {
		svc := newTestService(new(mockStore))
		assert.ErrorIs(t, svc.Close(ctx, 51, model.RoleMember), ErrNotAllowed)
	})
}
