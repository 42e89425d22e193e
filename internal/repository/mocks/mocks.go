package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/recollect/recollect/internal/domain/activity"
	"github.com/recollect/recollect/internal/domain/job"
	"github.com/recollect/recollect/internal/domain/meeting"
	"github.com/recollect/recollect/internal/domain/user"
)

// MeetingRepository is a mock for meeting.Repository.
type MeetingRepository struct {
	mock.Mock
}

func (m *MeetingRepository) Create(ctx context.Context, mt *meeting.Meeting) error {
	args := m.Called(ctx, mt)
	return args.Error(0)
}

func (m *MeetingRepository) Get(ctx context.Context, ownerID, id string) (*meeting.Meeting, error) {
	args := m.Called(ctx, ownerID, id)
	if mt, ok := args.Get(0).(*meeting.Meeting); ok {
		return mt, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) GetAggregate(ctx context.Context, ownerID, id string) (*meeting.Aggregate, error) {
	args := m.Called(ctx, ownerID, id)
	if agg, ok := args.Get(0).(*meeting.Aggregate); ok {
		return agg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) UpdateTranscript(ctx context.Context, ownerID, meetingID, text string) (*meeting.Transcript, error) {
	args := m.Called(ctx, ownerID, meetingID, text)
	if t, ok := args.Get(0).(*meeting.Transcript); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) UpdateSummary(ctx context.Context, ownerID, meetingID string, title, content *string, tags []string) (*meeting.Summary, error) {
	args := m.Called(ctx, ownerID, meetingID, title, content, tags)
	if s, ok := args.Get(0).(*meeting.Summary); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) GetSummariesByIDs(ctx context.Context, ownerID string, ids []string) (map[string]meeting.Summary, error) {
	args := m.Called(ctx, ownerID, ids)
	if sums, ok := args.Get(0).(map[string]meeting.Summary); ok {
		return sums, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) Delete(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

func (m *MeetingRepository) MarkFailed(ctx context.Context, id, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

// Queue is a mock for meeting.Queue.
type Queue struct {
	mock.Mock
}

func (m *Queue) Enqueue(ctx context.Context, meetingID string, kind job.Kind) (*job.Job, error) {
	args := m.Called(ctx, meetingID, kind)
	if j, ok := args.Get(0).(*job.Job); ok {
		return j, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Queue) Cancel(ctx context.Context, meetingID string) (int, error) {
	args := m.Called(ctx, meetingID)
	return args.Int(0), args.Error(1)
}

// SearchIndex is a mock for meeting.SearchIndex.
type SearchIndex struct {
	mock.Mock
}

func (m *SearchIndex) Index(ctx context.Context, s *meeting.Summary) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SearchIndex) Remove(ctx context.Context, summaryID string) error {
	args := m.Called(ctx, summaryID)
	return args.Error(0)
}

func (m *SearchIndex) Search(ctx context.Context, ownerID, query string, limit int) ([]meeting.ScoredRef, error) {
	args := m.Called(ctx, ownerID, query, limit)
	if refs, ok := args.Get(0).([]meeting.ScoredRef); ok {
		return refs, args.Error(1)
	}
	return nil, args.Error(1)
}

// BlobStore is a mock for meeting.BlobStore.
type BlobStore struct {
	mock.Mock
}

func (m *BlobStore) Put(ctx context.Context, mediaType string, data []byte) (string, error) {
	args := m.Called(ctx, mediaType, data)
	return args.String(0), args.Error(1)
}

func (m *BlobStore) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// ActivityRepository is a mock for meeting.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) ListByMeeting(ctx context.Context, meetingID string, limit int) ([]activity.Entry, error) {
	args := m.Called(ctx, meetingID, limit)
	if entries, ok := args.Get(0).([]activity.Entry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User, passwordHash string) error {
	args := m.Called(ctx, u, passwordHash)
	return args.Error(0)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, string, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) SaveToken(ctx context.Context, tokenHash, userID string) error {
	args := m.Called(ctx, tokenHash, userID)
	return args.Error(0)
}

func (m *UserRepository) ResolveToken(ctx context.Context, tokenHash string) (*user.User, error) {
	args := m.Called(ctx, tokenHash)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
