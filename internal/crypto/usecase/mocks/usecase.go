// Package mocks provides mock implementations of the crypto use cases for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/crypto/usecase"
)

// MockKeyUseCase is a mock implementation of usecase.KeyUseCase.
type MockKeyUseCase struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockKeyUseCase) Create(ctx context.Context, name, path string, password *string) (*cryptoDomain.Key, error) {
	args := m.Called(ctx, name, path, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Key), args.Error(1)
}

// Save mocks the Save method.
func (m *MockKeyUseCase) Save(ctx context.Context, key *cryptoDomain.Key, path string, password *string) error {
	args := m.Called(ctx, key, path, password)
	return args.Error(0)
}

// Load mocks the Load method.
func (m *MockKeyUseCase) Load(ctx context.Context, path string, password *string) (*cryptoDomain.Key, error) {
	args := m.Called(ctx, path, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.Key), args.Error(1)
}

// Reload mocks the Reload method.
func (m *MockKeyUseCase) Reload(ctx context.Context, key *cryptoDomain.Key, password *string) error {
	args := m.Called(ctx, key, password)
	return args.Error(0)
}

// NeedPassword mocks the NeedPassword method.
func (m *MockKeyUseCase) NeedPassword(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

// ChangePassword mocks the ChangePassword method.
func (m *MockKeyUseCase) ChangePassword(ctx context.Context, path string, oldPassword, newPassword *string) error {
	args := m.Called(ctx, path, oldPassword, newPassword)
	return args.Error(0)
}

// IsModified mocks the IsModified method.
func (m *MockKeyUseCase) IsModified(ctx context.Context, key *cryptoDomain.Key) (bool, bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

// MockFileUseCase is a mock implementation of usecase.FileUseCase.
type MockFileUseCase struct {
	mock.Mock
}

// EncryptFiles mocks the EncryptFiles method.
func (m *MockFileUseCase) EncryptFiles(
	ctx context.Context,
	key *cryptoDomain.Key,
	inputs []string,
	outputDir string,
) ([]usecase.FileResult, error) {
	args := m.Called(ctx, key, inputs, outputDir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.FileResult), args.Error(1)
}

// DecryptFiles mocks the DecryptFiles method.
func (m *MockFileUseCase) DecryptFiles(
	ctx context.Context,
	key *cryptoDomain.Key,
	inputs []string,
	outputDir string,
) ([]usecase.FileResult, error) {
	args := m.Called(ctx, key, inputs, outputDir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.FileResult), args.Error(1)
}

var (
	_ usecase.KeyUseCase  = (*MockKeyUseCase)(nil)
	_ usecase.FileUseCase = (*MockFileUseCase)(nil)
)
