package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/tinfoil/pkg/models"
)

func TestCreateContestant(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		mockSetup  func(m *MockContestantRepository)
		wantStatus int
	}{
		{
			name:  "valid contestant",
			input: "  Alice  ",
			mockSetup: func(m *MockContestantRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Contestant) bool {
					return c.Name == "Alice"
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Contestant).ID = 12
				}).Return(nil)
			},
		},
		{
			name:       "blank name",
			input:      "   ",
			mockSetup:  func(m *MockContestantRepository) {},
			wantStatus: 400,
		},
		{
			name:  "duplicate name",
			input: "Alice",
			mockSetup: func(m *MockContestantRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(models.ErrDuplicateContestant)
			},
			wantStatus: 409,
		},
		{
			name:  "database error",
			input: "Bob",
			mockSetup: func(m *MockContestantRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockContestantRepository)
			tt.mockSetup(repo)
			h := NewContestantHandler(repo)

			req := &models.CreateContestantRequest{}
			req.Body.Name = tt.input
			resp, err := h.CreateContestant(context.Background(), req)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(12), resp.Body.ID)
			assert.Equal(t, "Alice", resp.Body.Name)
			repo.AssertExpectations(t)
		})
	}
}

func TestListContestants(t *testing.T) {
	repo := new(MockContestantRepository)
	repo.On("List", mock.Anything).Return(nil, nil)

	resp, err := NewContestantHandler(repo).ListContestants(context.Background(), &struct{}{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Body.Contestants)
	assert.Empty(t, resp.Body.Contestants)
}
