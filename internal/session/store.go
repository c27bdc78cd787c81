package session

import (
	"errors"
	"strconv"
	"time"
)

// ErrNotFound is returned for unknown sessions and for sessions whose
// deadline has passed, whether or not the reaper has removed them yet.
var ErrNotFound = errors.New("session: not found or expired")

// DefaultTTL is the fixed lifetime of a session measured from creation.
const DefaultTTL = time.Hour

// Page is the extracted text of one uploaded image.
type Page struct {
	Number int
	Text   string
}

// Session is a read-only snapshot of a stored session.
// Stage results are not part of the snapshot; use Store.GetCache.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time // absolute, never extended by activity
	Pages     []Page
}

// Expired reports whether the session deadline has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Page returns the page with the given 1-based number.
func (s *Session) Page(number int) (Page, bool) {
	if number < 1 || number > len(s.Pages) {
		return Page{}, false
	}
	return s.Pages[number-1], true
}

// CacheKey identifies one memoized stage result within a session.
// Page is zero for results computed over the whole document.
type CacheKey struct {
	Page    int
	Stage   string
	Variant string
}

func (k CacheKey) String() string {
	return strconv.Itoa(k.Page) + ":" + k.Stage + ":" + k.Variant
}

// Store defines how sessions and their stage caches are held.
// Implementations must be safe for concurrent use and must treat an
// expired session exactly like a missing one.
type Store interface {
	Create(pages []Page) (*Session, error)
	Get(id string) (*Session, error)
	PutCache(id string, key CacheKey, value any) error
	GetCache(id string, key CacheKey) (value any, ok bool, err error)
	Delete(id string)
	ExpiredIDs() []string
	Len() int
}
