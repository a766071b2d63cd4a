package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/tokyoCitagh/CapstoneProject-group4/internal/auth"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/handlers"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/models"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/notify"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/routes"
	"github.com/tokyoCitagh/CapstoneProject-group4/internal/storage"
)

// testSchema mirrors the MySQL migrations in SQLite syntax, so handler
// tests run against a real database without a server.
const testSchema = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_staff BOOLEAN NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL
);
CREATE TABLE customers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NULL REFERENCES users (id) ON DELETE SET NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL
);
CREATE TABLE categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    slug TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL,
    display_order INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);
CREATE TABLE products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL,
    price REAL NOT NULL,
    discount_price REAL NULL,
    stock_quantity INTEGER NOT NULL DEFAULT 0,
    digital BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE TABLE product_categories (
    product_id INTEGER NOT NULL REFERENCES products (id) ON DELETE CASCADE,
    category_id INTEGER NOT NULL REFERENCES categories (id) ON DELETE CASCADE,
    PRIMARY KEY (product_id, category_id)
);
CREATE TABLE product_images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id INTEGER NOT NULL REFERENCES products (id) ON DELETE CASCADE,
    file_name TEXT NOT NULL,
    date_uploaded DATETIME NOT NULL
);
CREATE TABLE orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id INTEGER NULL REFERENCES customers (id) ON DELETE SET NULL,
    date_ordered DATETIME NOT NULL,
    complete BOOLEAN NOT NULL DEFAULT 0,
    transaction_id TEXT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    expected_delivery DATETIME NULL
);
CREATE TABLE order_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id INTEGER NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
    product_id INTEGER NOT NULL REFERENCES products (id) ON DELETE CASCADE,
    quantity INTEGER NOT NULL,
    date_added DATETIME NOT NULL
);
CREATE TABLE shipping_addresses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id INTEGER NULL REFERENCES customers (id) ON DELETE SET NULL,
    order_id INTEGER NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
    address TEXT NOT NULL,
    city TEXT NOT NULL,
    state TEXT NOT NULL,
    zipcode TEXT NOT NULL,
    country TEXT NOT NULL,
    date_added DATETIME NOT NULL
);
CREATE TABLE activity_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NULL REFERENCES users (id) ON DELETE SET NULL,
    action_time DATETIME NOT NULL,
    action_type TEXT NOT NULL,
    description TEXT NOT NULL,
    object_id INTEGER NULL,
    object_repr TEXT NULL
);
CREATE TABLE service_requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id INTEGER NULL REFERENCES customers (id) ON DELETE SET NULL,
    customer_name TEXT NOT NULL,
    contact_email TEXT NOT NULL,
    service_type TEXT NOT NULL,
    description TEXT NOT NULL,
    date_requested DATETIME NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING'
);
CREATE TABLE service_attachments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id INTEGER NOT NULL REFERENCES service_requests (id) ON DELETE CASCADE,
    file_name TEXT NOT NULL
);
CREATE TABLE quote_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id INTEGER NOT NULL REFERENCES service_requests (id) ON DELETE CASCADE,
    user_id INTEGER NULL REFERENCES users (id) ON DELETE SET NULL,
    sender TEXT NOT NULL,
    message TEXT NOT NULL,
    timestamp DATETIME NOT NULL
);
`

// testApp bundles everything a handler test needs. Handlers is exposed
// so a test can swap in a misbehaving dependency.
type testApp struct {
	DB       *sql.DB
	Handlers *handlers.Handlers
	Router   *gin.Engine
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// A single connection keeps every query on the same in-memory DB.
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	mediaRoot := t.TempDir()
	store := &storage.LocalStore{Root: mediaRoot, BaseURL: "http://localhost:8080"}

	h := &handlers.Handlers{
		DB:     db,
		Store:  store,
		Mailer: notify.LogMailer{},
	}

	return &testApp{
		DB:       db,
		Handlers: h,
		Router:   routes.SetupRouter(h, mediaRoot),
	}
}

// createUser seeds an account and returns its ID and a valid token.
func (app *testApp) createUser(t *testing.T, username string, isStaff bool) (int64, string) {
	t.Helper()

	var password models.Password
	require.NoError(t, password.Set("test-password-123"))

	result, err := app.DB.Exec(`
		INSERT INTO users (username, email, password_hash, is_staff, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		username, username+"@example.com", password.Hash, isStaff, true, time.Now())
	require.NoError(t, err)

	userID, err := result.LastInsertId()
	require.NoError(t, err)

	token, err := auth.GenerateToken(userID)
	require.NoError(t, err)

	return userID, token
}

// createProduct seeds a product and returns its ID.
func (app *testApp) createProduct(t *testing.T, name string, price float64, discountPrice *float64, stock int, digital bool) int64 {
	t.Helper()

	now := time.Now()
	result, err := app.DB.Exec(`
		INSERT INTO products (name, description, price, discount_price, stock_quantity, digital, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name, "", price, discountPrice, stock, digital, now, now)
	require.NoError(t, err)

	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

// doJSON performs a JSON request against the test router.
func (app *testApp) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

// decodeJSON unmarshals a recorded response body.
func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
