package mocks

import (
	"context"
	"time"

	actionnetwork "github.com/UnknownOlympus/wardtagger/internal/actionnetwork"
	mock "github.com/stretchr/testify/mock"
)

// Remote is a mock type for the service.Remote interface.
type Remote struct {
	mock.Mock
}

// ListTags provides a mock function with given fields: ctx, page
func (_m *Remote) ListTags(ctx context.Context, page int) (actionnetwork.TagPage, error) {
	ret := _m.Called(ctx, page)

	if len(ret) == 0 {
		panic("no return value specified for ListTags")
	}

	var r0 actionnetwork.TagPage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, int) (actionnetwork.TagPage, error)); ok {
		return rf(ctx, page)
	}
	if rf, ok := ret.Get(0).(func(context.Context, int) actionnetwork.TagPage); ok {
		r0 = rf(ctx, page)
	} else {
		r0 = ret.Get(0).(actionnetwork.TagPage)
	}

	if rf, ok := ret.Get(1).(func(context.Context, int) error); ok {
		r1 = rf(ctx, page)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListPeople provides a mock function with given fields: ctx, page, since
func (_m *Remote) ListPeople(ctx context.Context, page int, since *time.Time) (actionnetwork.PeoplePage, error) {
	ret := _m.Called(ctx, page, since)

	if len(ret) == 0 {
		panic("no return value specified for ListPeople")
	}

	var r0 actionnetwork.PeoplePage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, int, *time.Time) (actionnetwork.PeoplePage, error)); ok {
		return rf(ctx, page, since)
	}
	if rf, ok := ret.Get(0).(func(context.Context, int, *time.Time) actionnetwork.PeoplePage); ok {
		r0 = rf(ctx, page, since)
	} else {
		r0 = ret.Get(0).(actionnetwork.PeoplePage)
	}

	if rf, ok := ret.Get(1).(func(context.Context, int, *time.Time) error); ok {
		r1 = rf(ctx, page, since)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetPerson provides a mock function with given fields: ctx, personID
func (_m *Remote) GetPerson(ctx context.Context, personID string) (actionnetwork.Person, error) {
	ret := _m.Called(ctx, personID)

	if len(ret) == 0 {
		panic("no return value specified for GetPerson")
	}

	var r0 actionnetwork.Person
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (actionnetwork.Person, error)); ok {
		return rf(ctx, personID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) actionnetwork.Person); ok {
		r0 = rf(ctx, personID)
	} else {
		r0 = ret.Get(0).(actionnetwork.Person)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, personID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListTaggings provides a mock function with given fields: ctx, personID
func (_m *Remote) ListTaggings(ctx context.Context, personID string) ([]string, error) {
	ret := _m.Called(ctx, personID)

	if len(ret) == 0 {
		panic("no return value specified for ListTaggings")
	}

	var r0 []string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]string, error)); ok {
		return rf(ctx, personID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) []string); ok {
		r0 = rf(ctx, personID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]string)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, personID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// AddTagging provides a mock function with given fields: ctx, tagID, personID
func (_m *Remote) AddTagging(ctx context.Context, tagID string, personID string) error {
	ret := _m.Called(ctx, tagID, personID)

	if len(ret) == 0 {
		panic("no return value specified for AddTagging")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) error); ok {
		r0 = rf(ctx, tagID, personID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// RemoveTagging provides a mock function with given fields: ctx, tagID, personID
func (_m *Remote) RemoveTagging(ctx context.Context, tagID string, personID string) error {
	ret := _m.Called(ctx, tagID, personID)

	if len(ret) == 0 {
		panic("no return value specified for RemoveTagging")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) error); ok {
		r0 = rf(ctx, tagID, personID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewRemote creates a new instance of Remote.
func NewRemote(t interface {
	mock.TestingT
	Cleanup(func())
}) *Remote {
	mock := &Remote{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
