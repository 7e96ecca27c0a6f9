// Package auth stores user credentials and issues opaque bearer tokens.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/acksell/foosball/model"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/pbkdf2"
)

const (
	credentialsPrefix = "credentials:"
	tokenPrefix       = "token:"

	hashIterations = 10000
	hashKeyLen     = 512
	saltLen        = 32
	tokenLen       = 32
)

// Properties is free-form data attached to a user and copied onto its tokens.
type Properties map[string]string

// Identity is what a valid token proves.
type Identity struct {
	Username   string     `json:"username"`
	Properties Properties `json:"properties,omitempty"`
}

type credentials struct {
	ID   string     `dynamodbav:"id"`
	User string     `dynamodbav:"user"`
	Salt string     `dynamodbav:"salt"`
	Hash string     `dynamodbav:"hash"`
	Data Properties `dynamodbav:"data,omitempty"`
}

type token struct {
	ID       string     `dynamodbav:"id"`
	Username string     `dynamodbav:"username"`
	// TTL is the expiry in epoch seconds, reaped by the table's time-to-live.
	TTL  int64      `dynamodbav:"ttl"`
	Data Properties `dynamodbav:"data,omitempty"`
}

type Config struct {
	// TokenTTL is used when IssueToken is called without a ttl.
	TokenTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		TokenTTL: 365 * 24 * time.Hour,
	}
}

// Service keeps credentials and tokens in a point table.
type Service struct {
	store    kv.Store
	table    table.TableDefinition
	tokenTTL time.Duration
	clock    clockwork.Clock
	log      zerolog.Logger
}

type Option func(*Service)

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

func New(store kv.Store, t table.TableDefinition, cfg Config, opts ...Option) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	s := &Service{
		store:    store,
		table:    t,
		tokenTTL: cfg.TokenTTL,
		clock:    clockwork.NewRealClock(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func hashPassword(password, salt string) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLen, sha512.New))
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func requireCredentials(user, password string) error {
	if user == "" {
		return model.NewError(model.InvalidParam, "username is required")
	}
	if password == "" {
		return model.NewError(model.InvalidParam, "password is required")
	}
	return nil
}

// SaveUser stores credentials for user, replacing any previous password.
func (s *Service) SaveUser(ctx context.Context, user, password string, props Properties) error {
	if err := requireCredentials(user, password); err != nil {
		return err
	}
	salt, err := randomHex(saltLen)
	if err != nil {
		return err
	}
	rec, err := attributevalue.MarshalMap(credentials{
		ID:   credentialsPrefix + user,
		User: user,
		Salt: salt,
		Hash: hashPassword(password, salt),
		Data: props,
	})
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := s.store.PutItem(ctx, s.table, rec, kv.PutOverwrite); err != nil {
		return fmt.Errorf("save credentials of %s: %w", user, err)
	}
	s.log.Info().Str("user", user).Msg("credentials saved")
	return nil
}

// Authenticate checks the password of user and returns the stored properties.
// Unknown users and wrong passwords are both Forbidden.
func (s *Service) Authenticate(ctx context.Context, user, password string) (Properties, error) {
	if err := requireCredentials(user, password); err != nil {
		return nil, err
	}
	rec, err := s.store.GetItem(ctx, s.table, s.table.Key(credentialsPrefix+user, nil))
	if err != nil {
		return nil, fmt.Errorf("load credentials of %s: %w", user, err)
	}
	if rec == nil {
		return nil, model.NewError(model.Forbidden, "authentication failed")
	}
	var creds credentials
	if err := attributevalue.UnmarshalMap(rec, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials of %s: %w", user, err)
	}
	if subtle.ConstantTimeCompare([]byte(hashPassword(password, creds.Salt)), []byte(creds.Hash)) != 1 {
		s.log.Warn().Str("user", user).Msg("wrong password")
		return nil, model.NewError(model.Forbidden, "authentication failed")
	}
	return creds.Data, nil
}

// IssueToken creates a token for user valid for ttl, or the configured
// default when ttl is zero.
func (s *Service) IssueToken(ctx context.Context, user string, ttl time.Duration, props Properties) (string, error) {
	if ttl <= 0 {
		ttl = s.tokenTTL
	}
	tok, err := randomHex(tokenLen)
	if err != nil {
		return "", err
	}
	rec, err := attributevalue.MarshalMap(token{
		ID:       tokenPrefix + tok,
		Username: user,
		TTL:      s.clock.Now().Add(ttl).Unix(),
		Data:     props,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token: %w", err)
	}
	if err := s.store.PutItem(ctx, s.table, rec, kv.PutCreate); err != nil {
		return "", fmt.Errorf("save token of %s: %w", user, err)
	}
	return tok, nil
}

// ValidateToken returns the identity behind tok. Unknown and expired tokens
// are Forbidden.
func (s *Service) ValidateToken(ctx context.Context, tok string) (*Identity, error) {
	if tok == "" {
		return nil, model.NewError(model.Unauthorized, "missing token")
	}
	rec, err := s.store.GetItem(ctx, s.table, s.table.Key(tokenPrefix+tok, nil))
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if rec == nil {
		return nil, model.NewError(model.Forbidden, "invalid token")
	}
	var t token
	if err := attributevalue.UnmarshalMap(rec, &t); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if t.Username == "" {
		return nil, model.NewError(model.Forbidden, "invalid token")
	}
	if t.TTL <= s.clock.Now().Unix() {
		return nil, model.NewError(model.Forbidden, "token expired")
	}
	return &Identity{Username: t.Username, Properties: t.Data}, nil
}

// Login authenticates user and issues a token carrying the user's properties.
func (s *Service) Login(ctx context.Context, user, password string) (string, error) {
	props, err := s.Authenticate(ctx, user, password)
	if err != nil {
		return "", err
	}
	tok, err := s.IssueToken(ctx, user, 0, props)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("user", user).Msg("logged in")
	return tok, nil
}
