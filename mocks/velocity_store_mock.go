package mocks

import (
	"context"

	"github.com/NeuralTrust/SMSGuard/pkg/infra/velocity"
	"github.com/stretchr/testify/mock"
)

type VelocityStore struct {
	mock.Mock
}

func (m *VelocityStore) CountByIP(ctx context.Context, ip, requestID string) (int64, error) {
	args := m.Called(ctx, ip, requestID)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

func (m *VelocityStore) CountByPhonePrefix(ctx context.Context, prefix, phone, requestID string) (velocity.PrefixCounts, error) {
	args := m.Called(ctx, prefix, phone, requestID)
	counts, _ := args.Get(0).(velocity.PrefixCounts)
	return counts, args.Error(1)
}

func (m *VelocityStore) RecordRequest(ctx context.Context, ip, prefix, phone, requestID string) error {
	args := m.Called(ctx, ip, prefix, phone, requestID)
	return args.Error(0)
}
