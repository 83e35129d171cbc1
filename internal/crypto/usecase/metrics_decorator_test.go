package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/crypto/usecase"
	usecaseMocks "github.com/allisson/keymanager/internal/crypto/usecase/mocks"
	"github.com/allisson/keymanager/internal/metrics"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

func TestKeyUseCaseWithMetrics_Load(t *testing.T) {
	ctx := context.Background()
	password := "hunter2"

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		mockUseCase := &usecaseMocks.MockKeyUseCase{}
		mockMetrics := &mockBusinessMetrics{}
		key := cryptoDomain.NewKey("a", []byte("s"))

		mockUseCase.On("Load", ctx, "/keys/a.key", &password).Return(key, nil).Once()
		mockMetrics.On("RecordOperation", ctx, "keys", "key_load", "success").Once()
		mockMetrics.On("RecordDuration", ctx, "keys", "key_load", mock.AnythingOfType("time.Duration"), "success").
			Once()

		decorator := usecase.NewKeyUseCaseWithMetrics(mockUseCase, mockMetrics)
		got, err := decorator.Load(ctx, "/keys/a.key", &password)

		assert.NoError(t, err)
		assert.Same(t, key, got)
		mockUseCase.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		mockUseCase := &usecaseMocks.MockKeyUseCase{}
		mockMetrics := &mockBusinessMetrics{}

		mockUseCase.On("Load", ctx, "/keys/a.key", &password).Return(nil, cryptoDomain.ErrInvalidPassword).Once()
		mockMetrics.On("RecordOperation", ctx, "keys", "key_load", "error").Once()
		mockMetrics.On("RecordDuration", ctx, "keys", "key_load", mock.AnythingOfType("time.Duration"), "error").
			Once()

		decorator := usecase.NewKeyUseCaseWithMetrics(mockUseCase, mockMetrics)
		got, err := decorator.Load(ctx, "/keys/a.key", &password)

		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidPassword)
		assert.Nil(t, got)
		mockMetrics.AssertExpectations(t)
	})
}

func TestKeyUseCaseWithMetrics_Operations(t *testing.T) {
	ctx := context.Background()
	key := cryptoDomain.NewKey("a", []byte("s"))
	failure := errors.New("boom")

	tests := []struct {
		name      string
		operation string
		setup     func(m *usecaseMocks.MockKeyUseCase)
		call      func(uc usecase.KeyUseCase) error
	}{
		{
			name:      "Create",
			operation: "key_create",
			setup: func(m *usecaseMocks.MockKeyUseCase) {
				m.On("Create", ctx, "a", "/k", (*string)(nil)).Return(nil, failure)
			},
			call: func(uc usecase.KeyUseCase) error {
				_, err := uc.Create(ctx, "a", "/k", nil)
				return err
			},
		},
		{
			name:      "Save",
			operation: "key_save",
			setup: func(m *usecaseMocks.MockKeyUseCase) {
				m.On("Save", ctx, key, "/k", (*string)(nil)).Return(failure)
			},
			call: func(uc usecase.KeyUseCase) error {
				return uc.Save(ctx, key, "/k", nil)
			},
		},
		{
			name:      "Reload",
			operation: "key_reload",
			setup: func(m *usecaseMocks.MockKeyUseCase) {
				m.On("Reload", ctx, key, (*string)(nil)).Return(failure)
			},
			call: func(uc usecase.KeyUseCase) error {
				return uc.Reload(ctx, key, nil)
			},
		},
		{
			name:      "ChangePassword",
			operation: "key_change_password",
			setup: func(m *usecaseMocks.MockKeyUseCase) {
				m.On("ChangePassword", ctx, "/k", (*string)(nil), (*string)(nil)).Return(failure)
			},
			call: func(uc usecase.KeyUseCase) error {
				return uc.ChangePassword(ctx, "/k", nil, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUseCase := &usecaseMocks.MockKeyUseCase{}
			mockMetrics := &mockBusinessMetrics{}
			tt.setup(mockUseCase)
			mockMetrics.On("RecordOperation", ctx, "keys", tt.operation, "error").Once()
			mockMetrics.On("RecordDuration", ctx, "keys", tt.operation, mock.Anything, "error").Once()

			err := tt.call(usecase.NewKeyUseCaseWithMetrics(mockUseCase, mockMetrics))

			assert.ErrorIs(t, err, failure)
			mockUseCase.AssertExpectations(t)
			mockMetrics.AssertExpectations(t)
		})
	}
}

func TestKeyUseCaseWithMetrics_PassThrough(t *testing.T) {
	ctx := context.Background()
	key := cryptoDomain.NewKey("a", []byte("s"))
	mockUseCase := &usecaseMocks.MockKeyUseCase{}
	mockMetrics := &mockBusinessMetrics{}

	mockUseCase.On("NeedPassword", ctx, "/k").Return(true, nil).Once()
	mockUseCase.On("IsModified", ctx, key).Return(true, true, nil).Once()

	decorator := usecase.NewKeyUseCaseWithMetrics(mockUseCase, mockMetrics)

	need, err := decorator.NeedPassword(ctx, "/k")
	assert.NoError(t, err)
	assert.True(t, need)

	modified, known, err := decorator.IsModified(ctx, key)
	assert.NoError(t, err)
	assert.True(t, modified)
	assert.True(t, known)

	mockMetrics.AssertNotCalled(t, "RecordOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFileUseCaseWithMetrics_EncryptFiles(t *testing.T) {
	ctx := context.Background()
	key := cryptoDomain.NewKey("a", []byte("s"))
	inputs := []string{"a.txt", "b.txt"}
	results := []usecase.FileResult{
		{Input: "a.txt", Output: "/out/a.txt", Status: usecase.FileEncrypted},
		{Input: "b.txt", Status: usecase.FileSkippedMissing},
	}

	mockUseCase := &usecaseMocks.MockFileUseCase{}
	mockMetrics := &mockBusinessMetrics{}

	mockUseCase.On("EncryptFiles", ctx, key, inputs, "/out").Return(results, nil).Once()
	mockMetrics.On("RecordOperation", ctx, "files", "files_encrypt", "success").Once()
	mockMetrics.On("RecordDuration", ctx, "files", "files_encrypt", mock.Anything, "success").Once()
	mockMetrics.On("RecordOperation", ctx, "files", "files_encrypt_file", "encrypted").Once()
	mockMetrics.On("RecordOperation", ctx, "files", "files_encrypt_file", "skipped_missing").Once()

	decorator := usecase.NewFileUseCaseWithMetrics(mockUseCase, mockMetrics)
	got, err := decorator.EncryptFiles(ctx, key, inputs, "/out")

	assert.NoError(t, err)
	assert.Equal(t, results, got)
	mockMetrics.AssertExpectations(t)
}

func TestFileUseCaseWithMetrics_DecryptFiles(t *testing.T) {
	ctx := context.Background()
	key := cryptoDomain.NewKey("a", []byte("s"))

	mockUseCase := &usecaseMocks.MockFileUseCase{}
	mockMetrics := &mockBusinessMetrics{}

	mockUseCase.On("DecryptFiles", ctx, key, []string{"a"}, "/out").Return(nil, cryptoDomain.ErrKeyTimedOut).Once()
	mockMetrics.On("RecordOperation", ctx, "files", "files_decrypt", "error").Once()
	mockMetrics.On("RecordDuration", ctx, "files", "files_decrypt", mock.Anything, "error").Once()

	decorator := usecase.NewFileUseCaseWithMetrics(mockUseCase, mockMetrics)
	got, err := decorator.DecryptFiles(ctx, key, []string{"a"}, "/out")

	assert.ErrorIs(t, err, cryptoDomain.ErrKeyTimedOut)
	assert.Nil(t, got)
	mockMetrics.AssertExpectations(t)
}
