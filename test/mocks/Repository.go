package mocks

import (
	"context"

	models "github.com/UnknownOlympus/wardtagger/internal/models"
	mock "github.com/stretchr/testify/mock"
)

// Repository is a mock type for the repository.Interface interface.
type Repository struct {
	mock.Mock
}

// GetCoordinates provides a mock function with given fields: ctx, address
func (_m *Repository) GetCoordinates(ctx context.Context, address string) (models.Coordinates, error) {
	ret := _m.Called(ctx, address)

	if len(ret) == 0 {
		panic("no return value specified for GetCoordinates")
	}

	var r0 models.Coordinates
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (models.Coordinates, error)); ok {
		return rf(ctx, address)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) models.Coordinates); ok {
		r0 = rf(ctx, address)
	} else {
		r0 = ret.Get(0).(models.Coordinates)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, address)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SetCoordinates provides a mock function with given fields: ctx, address, coords
func (_m *Repository) SetCoordinates(ctx context.Context, address string, coords models.Coordinates) error {
	ret := _m.Called(ctx, address, coords)

	if len(ret) == 0 {
		panic("no return value specified for SetCoordinates")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, models.Coordinates) error); ok {
		r0 = rf(ctx, address, coords)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// IsMemberProcessed provides a mock function with given fields: ctx, memberID
func (_m *Repository) IsMemberProcessed(ctx context.Context, memberID string) (bool, error) {
	ret := _m.Called(ctx, memberID)

	if len(ret) == 0 {
		panic("no return value specified for IsMemberProcessed")
	}

	var r0 bool
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (bool, error)); ok {
		return rf(ctx, memberID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) bool); ok {
		r0 = rf(ctx, memberID)
	} else {
		r0 = ret.Get(0).(bool)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, memberID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// MarkMemberProcessed provides a mock function with given fields: ctx, memberID
func (_m *Repository) MarkMemberProcessed(ctx context.Context, memberID string) error {
	ret := _m.Called(ctx, memberID)

	if len(ret) == 0 {
		panic("no return value specified for MarkMemberProcessed")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, memberID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ClearProcessedMembers provides a mock function with given fields: ctx
func (_m *Repository) ClearProcessedMembers(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for ClearProcessedMembers")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// AddPendingMember provides a mock function with given fields: ctx, memberID
func (_m *Repository) AddPendingMember(ctx context.Context, memberID string) error {
	ret := _m.Called(ctx, memberID)

	if len(ret) == 0 {
		panic("no return value specified for AddPendingMember")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, memberID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// PendingMembers provides a mock function with given fields: ctx
func (_m *Repository) PendingMembers(ctx context.Context) ([]string, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for PendingMembers")
	}

	var r0 []string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) ([]string, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) []string); ok {
		r0 = rf(ctx)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// RemovePendingMember provides a mock function with given fields: ctx, memberID
func (_m *Repository) RemovePendingMember(ctx context.Context, memberID string) error {
	ret := _m.Called(ctx, memberID)

	if len(ret) == 0 {
		panic("no return value specified for RemovePendingMember")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, memberID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with no fields
func (_m *Repository) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewRepository creates a new instance of Repository.
func NewRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *Repository {
	mock := &Repository{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
