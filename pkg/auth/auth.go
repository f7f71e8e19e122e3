package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenManager manages bearer tokens for API clients. Tokens are
// returned to the caller once and stored only as bcrypt hashes.
type TokenManager struct {
	tokens map[string]*TokenInfo
	mu     sync.RWMutex
}

// TokenInfo contains token metadata
type TokenInfo struct {
	Hash      string
	Client    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager() *TokenManager {
	return &TokenManager{
		tokens: make(map[string]*TokenInfo),
	}
}

// GenerateToken issues a new token for the named client, replacing any
// previous one. The plaintext token is only available here.
func (tm *TokenManager) GenerateToken(client string, duration time.Duration) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)

	// Hash token for storage
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.tokens[client] = &TokenInfo{
		Hash:      string(hash),
		Client:    client,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(duration),
	}

	return token, nil
}

// ValidateToken checks a client's token against the stored hash
func (tm *TokenManager) ValidateToken(client, token string) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	info, ok := tm.tokens[client]
	if !ok {
		return ErrInvalidToken
	}

	if time.Now().After(info.ExpiresAt) {
		return ErrTokenExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(info.Hash), []byte(token)); err != nil {
		return ErrInvalidToken
	}

	return nil
}

// RevokeToken revokes the named client's token
func (tm *TokenManager) RevokeToken(client string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	delete(tm.tokens, client)
}

// CleanupExpiredTokens removes expired tokens and returns how many
// were removed.
func (tm *TokenManager) CleanupExpiredTokens() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	removed := 0
	now := time.Now()
	for client, info := range tm.tokens {
		if now.After(info.ExpiresAt) {
			delete(tm.tokens, client)
			removed++
		}
	}
	return removed
}

// CleanupLoop runs CleanupExpiredTokens on an interval until stop is
// closed. Run it in its own goroutine.
func (tm *TokenManager) CleanupLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tm.CleanupExpiredTokens()
		}
	}
}

// SecureCompare performs constant-time comparison. Use it for the
// admin bootstrap token, which is configured rather than issued.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
