package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taskboard/internal/models/task"
	"taskboard/internal/repository"
	"taskboard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) List(ctx context.Context, ownerKey string) ([]*task.Task, error) {
	args := m.Called(ctx, ownerKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id string) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

func businessCode(t *testing.T, err error) string {
	t.Helper()
	var be *service.BusinessError
	require.True(t, errors.As(err, &be), "expected BusinessError, got %v", err)
	return be.Code
}

func TestTaskService_HealthCheck(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("HealthCheck", mock.Anything).Return(errors.New("db down")).Once()
	repo.On("HealthCheck", mock.Anything).Return(nil).Once()
	svc := service.NewTaskService(repo)

	assert.Error(t, svc.HealthCheck(context.Background()))
	assert.NoError(t, svc.HealthCheck(context.Background()))
	repo.AssertExpectations(t)
}

func TestTaskService_ListTasks(t *testing.T) {
	repo := new(MockTaskRepository)
	stored := []*task.Task{{ID: "1", OwnerKey: "a@x.io", Title: "A", Category: task.ToDo}}
	repo.On("List", mock.Anything, "a@x.io").Return(stored, nil)
	repo.On("List", mock.Anything, "").Return(nil, errors.New("db down"))
	svc := service.NewTaskService(repo)

	got, err := svc.ListTasks(context.Background(), "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	_, err = svc.ListTasks(context.Background(), "")
	assert.Error(t, err)
	repo.AssertExpectations(t)
}

func TestTaskService_CreateTask(t *testing.T) {
	tests := []struct {
		name         string
		in           task.Task
		setupMock    func(*MockTaskRepository)
		expectedCode string
		expectedRank float64
		expectError  bool
	}{
		{
			name: "success - rank after the column's last task",
			in:   task.Task{OwnerKey: "a@x.io", Title: "New", Category: task.ToDo},
			setupMock: func(m *MockTaskRepository) {
				m.On("List", mock.Anything, "a@x.io").Return([]*task.Task{
					{ID: "1", OwnerKey: "a@x.io", Category: task.ToDo, Rank: 1024},
					{ID: "2", OwnerKey: "a@x.io", Category: task.ToDo, Rank: 4096},
					{ID: "3", OwnerKey: "a@x.io", Category: task.Done, Rank: 9999},
				}, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*task.Task")).Return(nil)
			},
			expectedRank: 4096 + service.RankStep,
		},
		{
			name: "success - empty column",
			in:   task.Task{OwnerKey: "a@x.io", Title: "New", Category: task.InProgress},
			setupMock: func(m *MockTaskRepository) {
				m.On("List", mock.Anything, "a@x.io").Return([]*task.Task{}, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*task.Task")).Return(nil)
			},
			expectedRank: service.RankStep,
		},
		{
			name: "success - client rank kept",
			in:   task.Task{OwnerKey: "a@x.io", Title: "New", Category: task.Done, Rank: 77},
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.AnythingOfType("*task.Task")).Return(nil)
			},
			expectedRank: 77,
		},
		{
			name:         "error - missing owner",
			in:           task.Task{Title: "New", Category: task.ToDo},
			setupMock:    func(m *MockTaskRepository) {},
			expectedCode: "VALIDATION_ERROR",
			expectError:  true,
		},
		{
			name:         "error - blank title",
			in:           task.Task{OwnerKey: "a@x.io", Title: "   ", Category: task.ToDo},
			setupMock:    func(m *MockTaskRepository) {},
			expectedCode: "VALIDATION_ERROR",
			expectError:  true,
		},
		{
			name:         "error - title too long",
			in:           task.Task{OwnerKey: "a@x.io", Title: strings.Repeat("x", task.MaxTitleLength+1), Category: task.ToDo},
			setupMock:    func(m *MockTaskRepository) {},
			expectedCode: "VALIDATION_ERROR",
			expectError:  true,
		},
		{
			name:         "error - invalid category",
			in:           task.Task{OwnerKey: "a@x.io", Title: "New"},
			setupMock:    func(m *MockTaskRepository) {},
			expectedCode: "VALIDATION_ERROR",
			expectError:  true,
		},
		{
			name: "error - repository failure",
			in:   task.Task{OwnerKey: "a@x.io", Title: "New", Category: task.Done, Rank: 1},
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockTaskRepository)
			tt.setupMock(repo)
			svc := service.NewTaskService(repo)

			created, err := svc.CreateTask(context.Background(), tt.in)
			if tt.expectError {
				require.Error(t, err)
				if tt.expectedCode != "" {
					assert.Equal(t, tt.expectedCode, businessCode(t, err))
					repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				}
				repo.AssertExpectations(t)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.False(t, created.CreatedAt.IsZero())
			assert.Nil(t, created.UpdatedAt)
			assert.Equal(t, tt.expectedRank, created.Rank)
			repo.AssertExpectations(t)
		})
	}
}

func TestTaskService_CreateTask_IgnoresClientID(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*task.Task")).Return(nil)
	svc := service.NewTaskService(repo)

	created, err := svc.CreateTask(context.Background(), task.Task{
		ID: "client-chosen", OwnerKey: "a@x.io", Title: "T", Category: task.ToDo, Rank: 1,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", created.ID)
}

func TestTaskService_UpdateTask(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := func() *task.Task {
		return &task.Task{
			ID: "t1", OwnerKey: "a@x.io", Title: "Old", Description: "old",
			Category: task.ToDo, Rank: 1024, CreatedAt: created,
		}
	}

	t.Run("success - fields replaced, owner and creation time kept", func(t *testing.T) {
		repo := new(MockTaskRepository)
		repo.On("GetByID", mock.Anything, "t1").Return(existing(), nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(u *task.Task) bool {
			return u.ID == "t1" && u.Title == "New" && u.Category == task.Done && u.Rank == 10 &&
				u.OwnerKey == "a@x.io" && u.CreatedAt.Equal(created)
		})).Return(nil)
		svc := service.NewTaskService(repo)

		updated, err := svc.UpdateTask(context.Background(), "t1", task.Task{
			Title: "New", Description: "new", Category: task.Done, Rank: 10,
		})
		require.NoError(t, err)
		assert.Equal(t, "New", updated.Title)
		assert.Equal(t, "new", updated.Description)
		repo.AssertExpectations(t)
	})

	t.Run("error - not found", func(t *testing.T) {
		repo := new(MockTaskRepository)
		repo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)
		svc := service.NewTaskService(repo)

		_, err := svc.UpdateTask(context.Background(), "missing", task.Task{Title: "x", Category: task.ToDo})
		assert.Equal(t, "NOT_FOUND", businessCode(t, err))
	})

	t.Run("error - deleted between read and write", func(t *testing.T) {
		repo := new(MockTaskRepository)
		repo.On("GetByID", mock.Anything, "t1").Return(existing(), nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(repository.ErrNotFound)
		svc := service.NewTaskService(repo)

		_, err := svc.UpdateTask(context.Background(), "t1", task.Task{Title: "x", Category: task.ToDo})
		assert.Equal(t, "NOT_FOUND", businessCode(t, err))
	})

	t.Run("error - owner change", func(t *testing.T) {
		repo := new(MockTaskRepository)
		repo.On("GetByID", mock.Anything, "t1").Return(existing(), nil)
		svc := service.NewTaskService(repo)

		_, err := svc.UpdateTask(context.Background(), "t1", task.Task{OwnerKey: "b@x.io", Title: "x", Category: task.ToDo})
		assert.Equal(t, "VALIDATION_ERROR", businessCode(t, err))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("error - invalid payload", func(t *testing.T) {
		repo := new(MockTaskRepository)
		repo.On("GetByID", mock.Anything, "t1").Return(existing(), nil)
		svc := service.NewTaskService(repo)

		_, err := svc.UpdateTask(context.Background(), "t1", task.Task{
			Title: "x", Description: strings.Repeat("d", task.MaxDescriptionLength+1), Category: task.ToDo,
		})
		assert.Equal(t, "VALIDATION_ERROR", businessCode(t, err))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestTaskService_DeleteTask(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("Delete", mock.Anything, "t1").Return(nil)
	repo.On("Delete", mock.Anything, "missing").Return(repository.ErrNotFound)
	repo.On("Delete", mock.Anything, "broken").Return(errors.New("db down"))
	svc := service.NewTaskService(repo)

	assert.NoError(t, svc.DeleteTask(context.Background(), "t1", ""))
	assert.Equal(t, "NOT_FOUND", businessCode(t, svc.DeleteTask(context.Background(), "missing", "")))

	err := svc.DeleteTask(context.Background(), "broken", "")
	require.Error(t, err)
	var be *service.BusinessError
	assert.False(t, errors.As(err, &be))
}

func TestTaskService_DeleteTask_ScopedToOwner(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("GetByID", mock.Anything, "mine").Return(&task.Task{ID: "mine", OwnerKey: "a@x.io"}, nil)
	repo.On("GetByID", mock.Anything, "theirs").Return(&task.Task{ID: "theirs", OwnerKey: "b@x.io"}, nil)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)
	repo.On("Delete", mock.Anything, "mine").Return(nil)
	svc := service.NewTaskService(repo)

	assert.NoError(t, svc.DeleteTask(context.Background(), "mine", "a@x.io"))
	assert.Equal(t, "NOT_FOUND", businessCode(t, svc.DeleteTask(context.Background(), "theirs", "a@x.io")))
	assert.Equal(t, "NOT_FOUND", businessCode(t, svc.DeleteTask(context.Background(), "missing", "a@x.io")))
	repo.AssertNotCalled(t, "Delete", mock.Anything, "theirs")
}
