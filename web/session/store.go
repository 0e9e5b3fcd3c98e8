package session

import (
	"crypto/sha256"
	"net/http"

	"github.com/bookshelf/bookshelf/config"
	"github.com/bookshelf/bookshelf/logger"
	"github.com/bookshelf/bookshelf/util/random"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/redis/go-redis/v9"
)

// CookieName is the name of the session cookie.
const CookieName = "bookshelf"

// keyPairs derives the signing key and the AES-256 encryption key from the secret.
func keyPairs(secret string) [][]byte {
	var authKey []byte
	if secret == "" {
		logger.Warning("session.secret is not set, sessions will not survive a restart")
		authKey = random.Bytes(64)
	} else {
		authKey = []byte(secret)
	}
	encKey := sha256.Sum256(append([]byte("bookshelf-session-enc:"), authKey...))
	return [][]byte{authKey, encKey[:]}
}

// Options returns the cookie options for the configured session lifetime.
func Options(cfg config.SessionConfig) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge * 60,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewStore builds the session store selected by cfg.Session.Store. The returned redis
// client is nil for the cookie store.
func NewStore(cfg *config.Config) (sessions.Store, *redis.Client, error) {
	keys := keyPairs(cfg.Session.Secret)

	var store sessions.Store
	var client *redis.Client
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = NewRedisStore(client, keys...)
	default:
		store = cookie.NewStore(keys...)
	}
	store.Options(Options(cfg.Session))
	return store, client, nil
}
