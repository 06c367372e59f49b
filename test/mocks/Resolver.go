package mocks

import (
	"context"

	models "github.com/UnknownOlympus/wardtagger/internal/models"
	mock "github.com/stretchr/testify/mock"
)

// Resolver is a mock type for the service.Resolver interface.
type Resolver struct {
	mock.Mock
}

// Resolve provides a mock function with given fields: ctx, member
func (_m *Resolver) Resolve(ctx context.Context, member models.Member) models.Resolution {
	ret := _m.Called(ctx, member)

	if len(ret) == 0 {
		panic("no return value specified for Resolve")
	}

	var r0 models.Resolution
	if rf, ok := ret.Get(0).(func(context.Context, models.Member) models.Resolution); ok {
		r0 = rf(ctx, member)
	} else {
		r0 = ret.Get(0).(models.Resolution)
	}

	return r0
}

// NewResolver creates a new instance of Resolver.
func NewResolver(t interface {
	mock.TestingT
	Cleanup(func())
}) *Resolver {
	mock := &Resolver{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
