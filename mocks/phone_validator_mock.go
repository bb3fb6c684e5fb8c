package mocks

import (
	"context"

	"github.com/NeuralTrust/SMSGuard/pkg/infra/phonevalidation"
	"github.com/stretchr/testify/mock"
)

type PhoneValidator struct {
	mock.Mock
}

func (m *PhoneValidator) Validate(ctx context.Context, phone string) (*phonevalidation.Result, error) {
	args := m.Called(ctx, phone)
	result, _ := args.Get(0).(*phonevalidation.Result)
	return result, args.Error(1)
}
