package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lorekeep/lorekeep/internal/apperror"
	"github.com/lorekeep/lorekeep/internal/kv"
)

// Key scheme. The id and email prefixes are deliberately disjoint so a
// prefix scan over records never picks up index entries.
const (
	recordKeyPrefix = "user:id:"
	emailKeyPrefix  = "user:email:"
	countKey        = "user:count"
)

// Store defines the data access contract for user records. Services depend
// on this interface, never on the key-value backend directly.
type Store interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)
}

// kvUserStore implements Store over the key-value backend. Each user is
// three keys: the record, an email-to-id index entry, and a share of the
// approximate count. The backend has no cross-key transactions, so writes
// go record, then index, then count -- a crash between steps leaves an
// orphan record discoverable only by a full prefix scan. That ordering is
// part of the contract, not an accident.
type kvUserStore struct {
	kv kv.Store
}

// NewStore creates a user store over the given backend.
func NewStore(backend kv.Store) Store {
	return &kvUserStore{kv: backend}
}

// storedUser is the persistence shape. The domain model hides the password
// hash from JSON responses, so storage re-adds it under its own tag.
type storedUser struct {
	User
	PasswordHash string `json:"password_hash"`
}

// GetByID retrieves a user record by id.
// Returns apperror.NotFound if no user exists with this id.
func (s *kvUserStore) GetByID(ctx context.Context, id string) (*User, error) {
	data, err := s.kv.Get(ctx, recordKeyPrefix+id)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, storeErr("reading user record", err)
	}
	return decodeUser(data)
}

// GetByEmail resolves the email index entry to an id, then fetches the
// record -- two logical reads against an eventually consistent backend, so
// a record freshly created elsewhere may not be visible yet.
func (s *kvUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = normalizeEmail(email)

	data, err := s.kv.Get(ctx, emailKeyPrefix+email)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, storeErr("reading email index", err)
	}

	return s.GetByID(ctx, string(data))
}

// Create persists a new user: collision check on both email and id, then
// record, index entry, and count increment.
//
// The collision check and the writes are not atomic. Two concurrent
// creates with the same email can both pass the check; the index entry is
// last-write-wins, so the losing record becomes an orphan reachable only
// by List. This is a known gap of the non-transactional backend, accepted
// rather than hidden.
func (s *kvUserStore) Create(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)

	if _, err := s.GetByEmail(ctx, user.Email); err == nil {
		return apperror.NewConflict("an account with this email already exists")
	} else if apperror.SafeCode(err) != 404 {
		return err
	}

	if _, err := s.GetByID(ctx, user.ID); err == nil {
		return apperror.NewConflict("this username is already taken")
	} else if apperror.SafeCode(err) != 404 {
		return err
	}

	data, err := encodeUser(user)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("encoding user: %w", err))
	}

	if err := s.kv.Put(ctx, recordKeyPrefix+user.ID, data, 0); err != nil {
		return storeErr("writing user record", err)
	}
	if err := s.kv.Put(ctx, emailKeyPrefix+user.Email, []byte(user.ID), 0); err != nil {
		return storeErr("writing email index", err)
	}
	if err := s.adjustCount(ctx, 1); err != nil {
		return err
	}
	return nil
}

// Update rewrites the full record. Partial-field semantics are the
// caller's responsibility: read, modify, pass the whole user back. An
// email change rewrites the index entry in lock-step with the record.
func (s *kvUserStore) Update(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)

	existing, err := s.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}

	data, err := encodeUser(user)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("encoding user: %w", err))
	}

	if err := s.kv.Put(ctx, recordKeyPrefix+user.ID, data, 0); err != nil {
		return storeErr("writing user record", err)
	}

	if existing.Email != user.Email {
		if err := s.kv.Put(ctx, emailKeyPrefix+user.Email, []byte(user.ID), 0); err != nil {
			return storeErr("writing email index", err)
		}
		if err := s.kv.Delete(ctx, emailKeyPrefix+existing.Email); err != nil {
			return storeErr("removing stale email index", err)
		}
	}
	return nil
}

// Delete removes the record, the email index entry, and decrements the
// count (floored at zero). Same ordering caveats as Create.
func (s *kvUserStore) Delete(ctx context.Context, id string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, recordKeyPrefix+id); err != nil {
		return storeErr("deleting user record", err)
	}
	if err := s.kv.Delete(ctx, emailKeyPrefix+user.Email); err != nil {
		return storeErr("deleting email index", err)
	}
	return s.adjustCount(ctx, -1)
}

// List enumerates all user records. The listing is a point-in-time,
// possibly stale, snapshot of the replicated keyspace.
func (s *kvUserStore) List(ctx context.Context) ([]User, error) {
	keys, err := s.kv.List(ctx, recordKeyPrefix)
	if err != nil {
		return nil, storeErr("listing user records", err)
	}

	users := make([]User, 0, len(keys))
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if errors.Is(err, kv.ErrNotFound) {
			continue // deleted between scan and fetch
		}
		if err != nil {
			return nil, storeErr("reading user record", err)
		}
		user, err := decodeUser(data)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

// Count returns the approximate number of users. The counter is maintained
// with unfenced read-modify-write, so concurrent creates and deletes can
// skew it. It is an aggregate for dashboards, not a correctness guarantee.
func (s *kvUserStore) Count(ctx context.Context) (int, error) {
	data, err := s.kv.Get(ctx, countKey)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("reading user count", err)
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, apperror.NewInternal(fmt.Errorf("parsing user count: %w", err))
	}
	return n, nil
}

// adjustCount applies a delta to the counter, flooring at zero.
func (s *kvUserStore) adjustCount(ctx context.Context, delta int) error {
	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	n += delta
	if n < 0 {
		n = 0
	}
	if err := s.kv.Put(ctx, countKey, []byte(strconv.Itoa(n)), 0); err != nil {
		return storeErr("writing user count", err)
	}
	return nil
}

// --- Helpers ---

func encodeUser(u *User) ([]byte, error) {
	return json.Marshal(storedUser{User: *u, PasswordHash: u.PasswordHash})
}

func decodeUser(data []byte) (*User, error) {
	var su storedUser
	if err := json.Unmarshal(data, &su); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("decoding user: %w", err))
	}
	user := su.User
	user.PasswordHash = su.PasswordHash
	return &user, nil
}

// normalizeEmail lower-cases and trims an address so index lookups are
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// storeErr maps backend failures onto the error taxonomy: unavailable
// backends become 503, anything else 500. No retries here -- the caller
// owns retry policy.
func storeErr(op string, err error) *apperror.AppError {
	if errors.Is(err, kv.ErrUnavailable) {
		return apperror.NewServiceUnavailable(fmt.Errorf("%s: %w", op, err))
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}
