package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyforge-server/internal/generation"
)

// MockAIClient is a mock type for the AIClient type
type MockAIClient struct {
	mock.Mock
}

// StreamStory provides a mock function with given fields: ctx, promptText
func (_m *MockAIClient) StreamStory(ctx context.Context, promptText string) (generation.TokenStream, error) {
	ret := _m.Called(ctx, promptText)

	var r0 generation.TokenStream
	if rf, ok := ret.Get(0).(func(context.Context, string) generation.TokenStream); ok {
		r0 = rf(ctx, promptText)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(generation.TokenStream)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, promptText)
	} else {
		err := ret.Error(1)
		if err != nil {
			r1 = err
		}
	}

	return r0, r1
}

// NewMockAIClient creates a new instance of MockAIClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockAIClient(t interface {
	mock.TestingT
	Helper()
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ generation.AIClient = (*MockAIClient)(nil)
