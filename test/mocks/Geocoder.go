package mocks

import (
	"context"

	models "github.com/UnknownOlympus/wardtagger/internal/models"
	mock "github.com/stretchr/testify/mock"
)

// Geocoder is a mock type for the resolver.Geocoder interface.
type Geocoder struct {
	mock.Mock
}

// CoordinatesForAddress provides a mock function with given fields: ctx, address
func (_m *Geocoder) CoordinatesForAddress(ctx context.Context, address string) (*models.Coordinates, error) {
	ret := _m.Called(ctx, address)

	if len(ret) == 0 {
		panic("no return value specified for CoordinatesForAddress")
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

// NewGeocoder creates a new instance of Geocoder.
func NewGeocoder(t interface {
	mock.TestingT
	Cleanup(func())
}) *Geocoder {
	mock := &Geocoder{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
