// Package identity looks up, creates and verifies user accounts, and runs the sign-in flow
// that decides which preference document gets loaded.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/04shr/petzy/internal/docstore"
	"github.com/04shr/petzy/internal/prefs"
	"github.com/04shr/petzy/internal/session"
)

// DefaultCost is the bcrypt work factor for new secrets.
const DefaultCost = 10

// Reason categorizes a failed identity operation.
type Reason string

const (
	ReasonNotFound         Reason = "not_found"
	ReasonWrongPassword    Reason = "wrong_password"
	ReasonUsernameRequired Reason = "username_required"
	ReasonUnknown          Reason = "unknown_error"
	ReasonAlreadyExists    Reason = "already_exists"
	ReasonSecretRequired   Reason = "secret_required"
)

// Error carries a Reason and the underlying cause, if any.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Reason) + ": " + e.Err.Error()
	}
	return string(e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf extracts the Reason from err, or ReasonUnknown for foreign errors.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonUnknown
}

func fail(r Reason, err error) error { return &Error{Reason: r, Err: err} }

// Record is a stored account.
type Record struct {
	Username   string    `json:"username"`
	Identifier string    `json:"username_lc"`
	PetName    string    `json:"petName"`
	SecretHash string    `json:"secretKeyHash"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Session returns the session context for the account.
func (r Record) Session() session.Context { return session.New(r.Username) }

// Directory is the account collection in the document store.
type Directory struct {
	docs docstore.Store
	log  *zap.Logger
	cost int
	now  func() time.Time
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) DirectoryOption {
	return func(d *Directory) { d.cost = cost }
}

// WithNow overrides the clock used for CreatedAt.
func WithNow(now func() time.Time) DirectoryOption {
	return func(d *Directory) { d.now = now }
}

// NewDirectory returns a directory over docs.
func NewDirectory(docs docstore.Store, log *zap.Logger, opts ...DirectoryOption) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Directory{docs: docs, log: log, cost: DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Exists reports whether an account is stored under the normalized username.
func (d *Directory) Exists(ctx context.Context, username string) (bool, error) {
	id := session.Normalize(username)
	if id == "" {
		return false, fail(ReasonUsernameRequired, nil)
	}
	_, err := d.docs.Get(ctx, prefs.Collection, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fail(ReasonUnknown, err)
	}
	return true, nil
}

// Create stores a new account with a hashed secret and default preferences.
func (d *Directory) Create(ctx context.Context, username, secret, petName string) (Record, error) {
	sess := session.New(username)
	if sess.IsAnonymous() {
		return Record{}, fail(ReasonUsernameRequired, nil)
	}
	if secret == "" {
		return Record{}, fail(ReasonSecretRequired, nil)
	}
	exists, err := d.Exists(ctx, username)
	if err != nil {
		return Record{}, err
	}
	if exists {
		return Record{}, fail(ReasonAlreadyExists, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), d.cost)
	if err != nil {
		return Record{}, fail(ReasonUnknown, fmt.Errorf("hash secret: %w", err))
	}
	rec := Record{
		Username:   sess.DisplayName(),
		Identifier: sess.Identifier(),
		PetName:    strings.TrimSpace(petName),
		SecretHash: string(hash),
		CreatedAt:  d.now().UTC(),
	}
	body, err := json.Marshal(struct {
		Record
		Preferences prefs.Document `json:"preferences"`
	}{rec, prefs.Default()})
	if err != nil {
		return Record{}, fail(ReasonUnknown, fmt.Errorf("encode account: %w", err))
	}
	if err := d.docs.Set(ctx, prefs.Collection, rec.Identifier, body); err != nil {
		return Record{}, fail(ReasonUnknown, err)
	}
	d.log.Info("account created", zap.String("user", rec.Identifier))
	return rec, nil
}

// Verify checks secret against the stored hash.
func (d *Directory) Verify(ctx context.Context, username, secret string) (Record, error) {
	id := session.Normalize(username)
	if id == "" {
		return Record{}, fail(ReasonUsernameRequired, nil)
	}
	raw, err := d.docs.Get(ctx, prefs.Collection, id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return Record{}, fail(ReasonNotFound, nil)
	case err != nil:
		return Record{}, fail(ReasonUnknown, err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fail(ReasonUnknown, fmt.Errorf("decode account: %w", err))
	}
	if rec.Identifier == "" {
		rec.Identifier = id
	}
	hash := gjson.GetBytes(raw, "secretKeyHash").String()
	if hash == "" {
		d.log.Warn("account has no stored secret", zap.String("user", id))
		return Record{}, fail(ReasonUnknown, errors.New("no password stored"))
	}
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return Record{}, fail(ReasonWrongPassword, nil)
	case err != nil:
		return Record{}, fail(ReasonUnknown, err)
	}
	return rec, nil
}
