package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sokone/internal/database"
	"github.com/dukerupert/sokone/internal/model"
	"github.com/dukerupert/sokone/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

const legacyJSON = `{
  "shop-master": [
    {"id": "1700000000001", "name": "スーパーA", "location": "駅前", "createdAt": "2024-01-02T03:04:05.000Z"},
    {"id": "1700000000002", "name": "ドラッグB", "location": ""}
  ],
  "shopping-list": [
    {"id": "1700000000100", "brand": "明治", "name": "牛乳", "price": 230, "shopId": "1700000000001",
     "stock": 2, "jan": "4902705001234", "amount": "1000", "unit": "ml", "size": "", "quantityInPack": 1,
     "createdAt": "2024-01-03T00:00:00.000Z", "updatedAt": "2024-01-04T00:00:00.000Z"},
    {"id": "1700000000101", "brand": "", "name": "卵", "price": 248.6, "shopId": "1700000000999",
     "stock": -3, "amount": "10", "unit": "パック", "quantityInPack": 10},
    {"id": "1700000000102", "name": "豆腐", "price": 98, "shopId": "1700000000002", "amount": "300",
     "unit": "", "quantityInPack": 4}
  ],
  "cart-list": [
    {"id": "1700000000100", "name": "牛乳", "price": 230, "shopId": "1700000000001", "amount": "1000",
     "unit": "ml", "stock": 2, "cartId": 1700000000500, "checked": true},
    {"id": "1700000000100", "name": "牛乳", "price": 230, "shopId": "1700000000001", "amount": "1000",
     "unit": "ml", "stock": 2, "cartId": 1700000000501},
    {"id": "gone", "name": "パン", "price": 150, "shopId": "", "cartId": 1700000000502}
  ]
}`

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func decodeLegacy(t *testing.T) *Blob {
	t.Helper()
	blob, err := Decode(strings.NewReader(legacyJSON))
	require.NoError(t, err)
	return blob
}

func TestImport(t *testing.T) {
	db := setupDB(t)

	res, err := Import(context.Background(), db, decodeLegacy(t), false)
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Shops: 2, Products: 3, CartItems: 2, Skipped: 1}, res)

	shops, err := store.NewShopStore(db).List()
	require.NoError(t, err)
	require.Len(t, shops, 2)
	assert.Equal(t, "スーパーA", shops[0].Name)
	assert.Equal(t, "駅前", shops[0].Location)
	assert.Equal(t, 2024, shops[0].CreatedAt.Year())

	products, err := store.NewProductStore(db).List()
	require.NoError(t, err)
	require.Len(t, products, 3)

	milk := products[0]
	assert.Equal(t, "牛乳", milk.Name)
	require.NotNil(t, milk.ShopID)
	assert.Equal(t, shops[0].ID, *milk.ShopID)
	assert.True(t, milk.IsVisible)
	assert.Equal(t, int64(2), milk.Stock)

	eggs := products[1]
	assert.Nil(t, eggs.ShopID, "dangling shop reference becomes unknown")
	assert.Equal(t, int64(249), eggs.Price)
	assert.Equal(t, int64(0), eggs.Stock)
	assert.Equal(t, int64(10), eggs.QuantityInPack)

	tofu := products[2]
	assert.Equal(t, model.UnitGram, tofu.Unit)
	assert.Equal(t, int64(1), tofu.QuantityInPack)

	items, err := store.NewCartStore(db).List()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "牛乳", items[0].Name)
	assert.True(t, items[0].Checked)
	require.NotNil(t, items[0].ProductID)
	assert.Equal(t, milk.ID, *items[0].ProductID)
	assert.Equal(t, "パン", items[1].Name)
	assert.Nil(t, items[1].ProductID)
	assert.Nil(t, items[1].ShopID)
}

func TestImportReplace(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, err := Import(ctx, db, decodeLegacy(t), false)
	require.NoError(t, err)
	_, err = Import(ctx, db, decodeLegacy(t), true)
	require.NoError(t, err)

	shops, err := store.NewShopStore(db).List()
	require.NoError(t, err)
	assert.Len(t, shops, 2)
}

func TestImportRollsBackOnError(t *testing.T) {
	db := setupDB(t)

	blob := decodeLegacy(t)
	blob.Products = append(blob.Products, LegacyProduct{ID: "bad"})

	_, err := Import(context.Background(), db, blob, false)
	require.Error(t, err)

	shops, err := store.NewShopStore(db).List()
	require.NoError(t, err)
	assert.Empty(t, shops)
}

func TestExport(t *testing.T) {
	shopID := int64(3)
	productID := int64(7)
	blob := Export(
		[]model.Shop{{ID: 3, Name: "スーパーA"}},
		[]model.Product{{ID: 7, Name: "牛乳", Price: 230, ShopID: &shopID, Unit: "ml", QuantityInPack: 1}},
		[]model.CartItem{{ID: 9, ProductID: &productID, Name: "牛乳", Price: 230, ShopID: &shopID, Checked: true,
			CreatedAt: time.UnixMilli(1700000000500)}},
	)

	data, err := json.Marshal(blob)
	require.NoError(t, err)
	var raw map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "3", raw["shop-master"][0]["id"])
	assert.Equal(t, "3", raw["shopping-list"][0]["shopId"])
	assert.Equal(t, float64(230), raw["shopping-list"][0]["price"])
	assert.Equal(t, false, raw["shopping-list"][0]["isVisible"])
	_, cartHasFlag := raw["cart-list"][0]["isVisible"]
	assert.False(t, cartHasFlag)
	assert.Equal(t, "7", raw["cart-list"][0]["id"])
	assert.Equal(t, float64(1700000000500), raw["cart-list"][0]["cartId"])
	assert.Equal(t, true, raw["cart-list"][0]["checked"])
}

func newTestManager(t *testing.T, passphrase string) (*Manager, *mockS3Client, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	m := NewManager(Config{Passphrase: passphrase}, db, slog.Default())
	mock := newMockS3()
	m.client = mock
	m.cfg.S3.Bucket = "test"
	m.status.State = StateIdle
	return m, mock, db
}

func TestManagerDisabled(t *testing.T) {
	m := NewManager(Config{}, setupDB(t), slog.Default())
	assert.Equal(t, StateDisabled, m.Status().State)

	_, err := m.Upload(context.Background())
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = m.Restore(context.Background(), "snapshots/x.json")
	assert.ErrorIs(t, err, ErrDisabled)

	enabled := NewManager(Config{S3: S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"}}, nil, slog.Default())
	assert.Equal(t, StateIdle, enabled.Status().State)
}

func TestManagerUploadRestore(t *testing.T) {
	ctx := context.Background()
	m, mock, db := newTestManager(t, "")

	_, err := m.Import(ctx, decodeLegacy(t), false)
	require.NoError(t, err)

	key, err := m.Upload(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "snapshots/sokone-"))
	assert.True(t, strings.HasSuffix(key, ".json"))
	assert.Contains(t, mock.objects, key)

	status := m.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.Equal(t, key, status.LastKey)
	require.NotNil(t, status.LastUpload)

	_, err = store.NewShopStore(db).Create("追加店", "")
	require.NoError(t, err)

	res, err := m.Restore(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Shops)
	assert.Equal(t, 3, res.Products)
	assert.Equal(t, 2, res.CartItems)

	shops, err := store.NewShopStore(db).List()
	require.NoError(t, err)
	assert.Len(t, shops, 2)

	items, err := store.NewCartStore(db).List()
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].ProductID, "restored cart item keeps its product link")
}

func TestManagerRoundTripKeepsHiddenProducts(t *testing.T) {
	ctx := context.Background()
	m, _, db := newTestManager(t, "")
	ps := store.NewProductStore(db)

	shown, err := ps.Create(model.ProductInput{Name: "牛乳", Price: 198, Unit: "ml", QuantityInPack: 1, IsVisible: true})
	require.NoError(t, err)
	hidden, err := ps.Create(model.ProductInput{Name: "卵", Price: 248, Unit: "個", QuantityInPack: 1})
	require.NoError(t, err)
	require.False(t, hidden.IsVisible)

	blob, err := m.Export()
	require.NoError(t, err)
	_, err = m.Import(ctx, blob, true)
	require.NoError(t, err)

	products, err := ps.List()
	require.NoError(t, err)
	require.Len(t, products, 2)
	byName := map[string]bool{}
	for _, p := range products {
		byName[p.Name] = p.IsVisible
	}
	assert.Equal(t, shown.IsVisible, byName["牛乳"])
	assert.False(t, byName["卵"], "hidden product stays hidden after restore")
}

func TestRestoreRejectsOversizedObject(t *testing.T) {
	m, mock, _ := newTestManager(t, "")
	mock.objects["snapshots/big.json"] = []byte(`{"shop-master":[],"shopping-list":[],"cart-list":[]}`)

	orig := maxRestoreSize
	maxRestoreSize = 10
	t.Cleanup(func() { maxRestoreSize = orig })

	_, err := m.Restore(context.Background(), "snapshots/big.json")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestManagerEncryptedUpload(t *testing.T) {
	ctx := context.Background()
	m, mock, _ := newTestManager(t, "correct horse")

	key, err := m.Upload(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".json.enc"))
	assert.False(t, json.Valid(mock.objects[key]))

	_, err = m.Restore(ctx, key)
	require.NoError(t, err)

	m.cfg.Passphrase = "wrong"
	_, err = m.Restore(ctx, key)
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestManagerUploadFailure(t *testing.T) {
	m, mock, _ := newTestManager(t, "")
	mock.putErr = errors.New("boom")

	_, err := m.Upload(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, m.Status().State)
	assert.Contains(t, m.Status().Error, "boom")
}

func TestRestoreRejectsForeignKey(t *testing.T) {
	m, _, _ := newTestManager(t, "")
	_, err := m.Restore(context.Background(), "other/backup.db")
	assert.Error(t, err)
}

func TestEncryptDecrypt(t *testing.T) {
	plain := []byte(`{"shop-master":[]}`)

	sealed, err := Encrypt(plain, "pass")
	require.NoError(t, err)
	assert.Len(t, sealed, saltSize+nonceSize+len(plain)+16)

	again, err := Encrypt(plain, "pass")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "fresh salt and nonce per call")

	opened, err := Decrypt(sealed, "pass")
	require.NoError(t, err)
	assert.Equal(t, plain, opened)

	_, err = Decrypt(sealed, "nope")
	assert.ErrorIs(t, err, ErrWrongPassphrase)

	_, err = Decrypt([]byte("short"), "pass")
	assert.Error(t, err)
}
