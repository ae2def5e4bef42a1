package stats

import "github.com/stretchr/testify/mock"

type MockStatsUpdater struct {
	mock.Mock
}

// NewPermissiveMock returns a mock that accepts any metric call. Use it where
// a test does not assert on metrics.
func NewPermissiveMock() *MockStatsUpdater {
	m := &MockStatsUpdater{}
	m.On("RegisterMetric", mock.Anything).Maybe()
	m.On("Incr", mock.Anything).Maybe()
	m.On("Decr", mock.Anything).Maybe()
	m.On("Run").Maybe()
	return m
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Run() {
	m.Called()
}
