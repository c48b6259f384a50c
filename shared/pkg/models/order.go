package models

const (
	OrderFieldEmail  = "email"
	OrderFieldStatus = "status"
)

// OrderStatusShipped is the only status the API ever writes.
const OrderStatusShipped = "shipped"
