package server

import (
	"github.com/getmynews/getmynews/feed"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
)

type MockEmailProvider struct {
	mock.Mock
}

func (m *MockEmailProvider) Start(r *mux.Router, in feed.Ingester) error {
	args := m.Called(r, in)
	return args.Error(0)
}

func (m *MockEmailProvider) Stop() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockEmailProvider) RegisterRoute(f feed.Feed) (string, error) {
	args := m.Called(f)
	return args.String(0), args.Error(1)
}

func (m *MockEmailProvider) DeregisterRoute(routeID string) error {
	args := m.Called(routeID)
	return args.Error(0)
}
