// Package identity governs the session lifecycle from login to logout: it
// issues session keys, tracks the per-session identity record and persists it
// to the record store once per completed turn.
package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MonsterRookie/ashalytics/internal/analysis"
	"github.com/MonsterRookie/ashalytics/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("identity: worker id and district code are required")
	ErrNotLoggedIn        = errors.New("identity: no active session")
)

// Identity is the logged-in view handed back to the caller.
type Identity struct {
	SessionKey string       `json:"session_key"`
	WorkerID   string       `json:"worker_id"`
	Token      string       `json:"token"`
	Record     store.Record `json:"record"`
}

// Controller owns one worker's login state. A conversation reset does not
// touch it; only Logout drops the session identifier.
type Controller struct {
	store store.Store

	mu       sync.Mutex
	workerID string
	token    string
	key      string
	record   *store.Record
}

// NewController constructs a controller backed by the given record store.
func NewController(st store.Store) *Controller {
	return &Controller{store: st}
}

// GenerateSessionKey formats a fresh session key from the district code plus
// a random short token, e.g. "APT-RAJ-0F3".
func GenerateSessionKey(district string) string {
	d := strings.ToUpper(strings.TrimSpace(district))
	if len(d) > 3 {
		d = d[:3]
	}
	return fmt.Sprintf("APT-%s-%03X", d, rand.Intn(0x1000))
}

// Login validates credentials, issues a session key and initializes the
// identity record, resuming a stored record if the key already exists.
func (c *Controller) Login(ctx context.Context, workerID, district string) (Identity, error) {
	workerID = strings.TrimSpace(workerID)
	district = strings.TrimSpace(district)
	if workerID == "" || district == "" {
		return Identity{}, ErrInvalidCredentials
	}

	key := GenerateSessionKey(district)
	rec, err := c.store.Get(ctx, key)
	if err != nil {
		return Identity{}, fmt.Errorf("read identity record: %w", err)
	}
	if rec == nil {
		rec = &store.Record{
			SessionKey: key,
			WorkerID:   workerID,
			Visits:     0,
			LastTriage: "N/A",
			LastVisit:  time.Now().UTC(),
		}
	}

	c.mu.Lock()
	c.workerID = workerID
	c.token = uuid.NewString()
	c.key = key
	c.record = rec
	id := c.identityLocked()
	c.mu.Unlock()
	return id, nil
}

// CompleteTurn records one completed turn with a known triage status:
// increments the visit count, updates the last-triage and last-visit fields
// and persists the record.
func (c *Controller) CompleteTurn(ctx context.Context, status analysis.Status) error {
	c.mu.Lock()
	if c.record == nil {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	c.record.Visits++
	c.record.LastTriage = string(status)
	c.record.LastVisit = time.Now().UTC()
	rec := *c.record
	c.mu.Unlock()

	if err := c.store.Upsert(ctx, &rec); err != nil {
		return fmt.Errorf("persist identity record: %w", err)
	}
	return nil
}

// Identity returns the current logged-in identity, if any.
func (c *Controller) Identity() (Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		return Identity{}, false
	}
	return c.identityLocked(), true
}

func (c *Controller) identityLocked() Identity {
	return Identity{
		SessionKey: c.key,
		WorkerID:   c.workerID,
		Token:      c.token,
		Record:     *c.record,
	}
}

// Logout drops the session identity entirely. The stored record remains in
// the record store; only the in-session identifier is cleared.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.workerID = ""
	c.token = ""
	c.key = ""
	c.record = nil
	c.mu.Unlock()
}
