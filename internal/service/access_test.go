package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marketbay/storefront-api/internal/model"
)

func TestCanAccessOrder(t *testing.T) {
	ownerID := int64(1)
	order := &model.Order{ID: 10, UserID: &ownerID}
	orphan := &model.Order{ID: 11}

	tests := []struct {
		name  string
		user  *model.User
		order *model.Order
		want  bool
	}{
		{"owner", testCustomer(1), order, true},
		{"other user", testCustomer(2), order, false},
		{"admin", testAdmin(3), order, true},
		{"admin owns too", testAdmin(1), order, true},
		{"nil user", nil, order, false},
		{"nil order", testCustomer(1), nil, false},
		{"orphaned order, plain user", testCustomer(1), orphan, false},
		{"orphaned order, admin", testAdmin(3), orphan, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAccessOrder(tc.user, tc.order))
		})
	}
}
