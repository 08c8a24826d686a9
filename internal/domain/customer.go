package domain

// Customer — клиент, оставивший заказ.
type Customer struct {
	ID    string
	Email string
}
