package auth

import (
	"sync"
)

// Keyring holds the plaintext API key for each live session, in process
// memory only. The persisted session keeps just a one-way hash, so this is
// the sole place a usable key survives past redemption. A restart empties
// the ring and simply forces clients through a new code exchange.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]string // session id -> api key
}

func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]string)}
}

// Put associates a session with its API key, replacing any previous entry.
func (k *Keyring) Put(sessionID, apiKey string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[sessionID] = apiKey
}

// Get returns the API key for a session, if the ring still holds one.
func (k *Keyring) Get(sessionID string) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[sessionID]
	return key, ok
}

// Drop forgets a session's key. Called on deactivation.
func (k *Keyring) Drop(sessionID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, sessionID)
}
