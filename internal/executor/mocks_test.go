package executor

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pagepilot/internal/dom"
)

// -- Driver Mock --

// MockDriver mocks the Driver interface.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) Inspect(ctx context.Context, h dom.Handle) (*ElementState, error) {
	args := m.Called(ctx, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ElementState), args.Error(1)
}

func (m *MockDriver) Click(ctx context.Context, h dom.Handle, synthetic bool) error {
	return m.Called(ctx, h, synthetic).Error(0)
}

func (m *MockDriver) SetChecked(ctx context.Context, h dom.Handle, checked bool) error {
	return m.Called(ctx, h, checked).Error(0)
}

func (m *MockDriver) SetValue(ctx context.Context, h dom.Handle, value string) error {
	return m.Called(ctx, h, value).Error(0)
}

func (m *MockDriver) TypeText(ctx context.Context, h dom.Handle, text string, clear bool) error {
	return m.Called(ctx, h, text, clear).Error(0)
}

func (m *MockDriver) SelectOption(ctx context.Context, h dom.Handle, optionIndex int) error {
	return m.Called(ctx, h, optionIndex).Error(0)
}

func (m *MockDriver) Hover(ctx context.Context, h dom.Handle) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockDriver) Focus(ctx context.Context, h dom.Handle) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockDriver) ScrollBy(ctx context.Context, dx, dy int) error {
	return m.Called(ctx, dx, dy).Error(0)
}

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) Back(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) Forward(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Resolver Fake --

type fakeResolver map[int]dom.Handle

func (f fakeResolver) GetElement(index int) (dom.Handle, bool) {
	h, ok := f[index]
	return h, ok
}
