package mocks

import (
	"context"

	models "github.com/UnknownOlympus/wardtagger/internal/models"
	mock "github.com/stretchr/testify/mock"
)

// Provider is a mock type for the geocoding.Provider interface.
type Provider struct {
	mock.Mock
}

// Geocode provides a mock function with given fields: ctx, address
func (_m *Provider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	ret := _m.Called(ctx, address)

	if len(ret) == 0 {
		panic("no return value specified for Geocode")
	}

	var r0 *models.Coordinates
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*models.Coordinates, error)); ok {
		return rf(ctx, address)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *models.Coordinates); ok {
		r0 = rf(ctx, address)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.Coordinates)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, address)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewProvider creates a new instance of Provider.
func NewProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *Provider {
	mock := &Provider{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
