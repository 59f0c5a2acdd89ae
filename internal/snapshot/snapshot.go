// Package snapshot moves the database to and from the browser-storage
// document format and keeps copies of it in S3-compatible storage.
package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/sokone/internal/store"
)

const (
	keyPrefix    = "snapshots/"
	encryptedExt = ".enc"
)

// MaxSize bounds a snapshot document read from a client or from S3.
const MaxSize = 16 << 20

// maxRestoreSize is the download cap applied by Restore.
var maxRestoreSize int64 = MaxSize

// ErrTooLarge is returned when a stored snapshot exceeds the download cap.
var ErrTooLarge = errors.New("snapshot too large")

// ErrDisabled is returned by S3 operations when storage is not configured.
var ErrDisabled = errors.New("snapshot storage not configured")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3 S3Config
	// Passphrase encrypts uploads when set.
	Passphrase string
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastUpload *time.Time `json:"last_upload,omitempty"`
	LastKey    string     `json:"last_key,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Manager exports, imports and stores snapshots of the database.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	status Status
	client s3Client

	db       *sql.DB
	shops    *store.ShopStore
	products *store.ProductStore
	cart     *store.CartStore
	logger   *slog.Logger
}

// NewManager creates a Manager. S3 operations return ErrDisabled unless
// bucket and credentials are configured.
func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		status:   Status{State: StateDisabled},
		db:       db,
		shops:    store.NewShopStore(db),
		products: store.NewProductStore(db),
		cart:     store.NewCartStore(db),
		logger:   logger,
	}
	if cfg.S3.enabled() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// Export reads every table into a Blob.
func (m *Manager) Export() (*Blob, error) {
	shops, err := m.shops.List()
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	products, err := m.products.List()
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	cart, err := m.cart.List()
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	return Export(shops, products, cart), nil
}

// Import writes blob into the database. See Import.
func (m *Manager) Import(ctx context.Context, blob *Blob, replace bool) (*ImportResult, error) {
	res, err := Import(ctx, m.db, blob, replace)
	if err != nil {
		return nil, err
	}
	m.logger.Info("snapshot imported",
		"shops", res.Shops, "products", res.Products,
		"cart_items", res.CartItems, "skipped", res.Skipped, "replace", replace)
	return res, nil
}

// Upload exports the database and stores it under a timestamped key,
// encrypted when a passphrase is configured. It returns the object key.
func (m *Manager) Upload(ctx context.Context) (string, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return "", ErrDisabled
	}

	m.setStatus(Status{State: StateRunning})

	key, err := m.upload(ctx, client, bucket, passphrase)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return "", err
	}

	now := time.Now().UTC()
	m.setStatus(Status{State: StateIdle, LastUpload: &now, LastKey: key})
	m.logger.Info("snapshot uploaded", "key", key)
	return key, nil
}

func (m *Manager) upload(ctx context.Context, client s3Client, bucket, passphrase string) (string, error) {
	blob, err := m.Export()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := keyPrefix + "sokone-" + time.Now().UTC().Format("20060102T150405Z") + ".json"
	if passphrase != "" {
		if data, err = Encrypt(data, passphrase); err != nil {
			return "", fmt.Errorf("encrypt snapshot: %w", err)
		}
		key += encryptedExt
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return key, nil
}

// Restore downloads the snapshot at key and replaces the database contents
// with it.
func (m *Manager) Restore(ctx context.Context, key string) (*ImportResult, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrDisabled
	}
	if !strings.HasPrefix(key, keyPrefix) {
		return nil, fmt.Errorf("invalid snapshot key %q", key)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(io.LimitReader(result.Body, maxRestoreSize+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if int64(len(data)) > maxRestoreSize {
		return nil, ErrTooLarge
	}

	if strings.HasSuffix(key, encryptedExt) {
		if passphrase == "" {
			return nil, ErrWrongPassphrase
		}
		if data, err = Decrypt(data, passphrase); err != nil {
			return nil, err
		}
	}

	blob, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return m.Import(ctx, blob, true)
}
