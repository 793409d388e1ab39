package service

import "github.com/marketbay/storefront-api/internal/model"

// CanAccessOrder is the owner-or-admin rule for order visibility and
// mutation: admins see every order, everyone else only their own.
func CanAccessOrder(user *model.User, order *model.Order) bool {
	if user == nil || order == nil {
		return false
	}
	if user.IsAdmin {
		return true
	}
	return order.UserID != nil && *order.UserID == user.ID
}
