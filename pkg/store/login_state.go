package store

import "time"

// LoginState is the short-lived OAuth state tracked between the redirect
// to the provider and the callback. Keyed by the state nonce.
type LoginState struct {
	Nonce     string    `json:"nonce"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}
