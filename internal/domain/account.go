package domain

// Account represents a registered user of the todo service.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
}
