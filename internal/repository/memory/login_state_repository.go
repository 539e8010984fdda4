package memory

import (
	"comai-chat-be/pkg/store"
	"time"

	"github.com/patrickmn/go-cache"
)

// LoginStateRepository holds OAuth state nonces between the redirect and
// the provider callback. Entries expire on their own; a callback that
// arrives late simply finds nothing.
type LoginStateRepository struct {
	cache *cache.Cache
}

func NewLoginStateRepository() *LoginStateRepository {
	// States live 10 minutes, which is plenty for a consent screen.
	c := cache.New(10*time.Minute, 5*time.Minute)
	return &LoginStateRepository{
		cache: c,
	}
}

func (r *LoginStateRepository) Save(state *store.LoginState) {
	r.cache.Set(state.Nonce, state, cache.DefaultExpiration)
}

// Consume returns the state and removes it so a nonce can be used once.
func (r *LoginStateRepository) Consume(nonce string) (*store.LoginState, bool) {
	x, found := r.cache.Get(nonce)
	if !found {
		return nil, false
	}
	r.cache.Delete(nonce)
	return x.(*store.LoginState), true
}
