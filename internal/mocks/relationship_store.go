package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/netcmdb/netcmdb/internal/interfaces"
)

// RelationshipStore is a testify mock of interfaces.RelationshipStore
type RelationshipStore struct {
	mock.Mock
}

// ListRelationships provides a mock function with given fields: ctx, filter
func (_m *RelationshipStore) ListRelationships(ctx context.Context, filter interfaces.RelationshipFilter) ([]interfaces.RelationshipRecord, error) {
	ret := _m.Called(ctx, filter)

	var r0 []interfaces.RelationshipRecord
	if rf, ok := ret.Get(0).(func(context.Context, interfaces.RelationshipFilter) []interfaces.RelationshipRecord); ok {
		r0 = rf(ctx, filter)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]interfaces.RelationshipRecord)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, interfaces.RelationshipFilter) error); ok {
		r1 = rf(ctx, filter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewRelationshipStore creates a new RelationshipStore mock and registers a
// cleanup that asserts its expectations
func NewRelationshipStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *RelationshipStore {
	m := &RelationshipStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ interfaces.RelationshipStore = (*RelationshipStore)(nil)
