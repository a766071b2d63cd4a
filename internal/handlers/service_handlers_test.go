package handlers_test

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenStore simulates media storage being unavailable.
type brokenStore struct{}

func (brokenStore) Save(*multipart.FileHeader) (string, error) { return "", errors.New("disk full") }
func (brokenStore) URL(name string) string                     { return "http://localhost:8080/media/" + name }
func (brokenStore) Remove(string) error                        { return nil }

// submitRequest posts a multipart service request with n attachments.
func submitRequest(t *testing.T, app *testApp, token string, attachments int) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("customer_name", "Ana Lim"))
	require.NoError(t, mw.WriteField("contact_email", "ana@example.com"))
	require.NoError(t, mw.WriteField("service_type", "Camera Repair"))
	require.NoError(t, mw.WriteField("description", "Shutter is stuck halfway."))
	for i := 0; i < attachments; i++ {
		fw, err := mw.CreateFormFile("attachments", "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/services/requests", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func TestSubmitRequest(t *testing.T) {
	t.Run("guest submission lands as pending with no owner", func(t *testing.T) {
		app := setupTestApp(t)

		w := submitRequest(t, app, "", 2)
		require.Equal(t, http.StatusCreated, w.Code)

		var status string
		var customerID any
		require.NoError(t, app.DB.QueryRow("SELECT status, customer_id FROM service_requests").Scan(&status, &customerID))
		assert.Equal(t, "PENDING", status)
		assert.Nil(t, customerID)

		var attachmentCount int
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM service_attachments").Scan(&attachmentCount))
		assert.Equal(t, 2, attachmentCount)
	})

	t.Run("logged-in submission links the customer profile", func(t *testing.T) {
		app := setupTestApp(t)
		_, token := app.createUser(t, "ana", false)

		w := submitRequest(t, app, token, 0)
		require.Equal(t, http.StatusCreated, w.Code)

		var customerID int64
		require.NoError(t, app.DB.QueryRow("SELECT customer_id FROM service_requests").Scan(&customerID))
		assert.NotZero(t, customerID)
	})

	t.Run("storage failure does not fail the submission", func(t *testing.T) {
		app := setupTestApp(t)
		app.Handlers.Store = brokenStore{}

		w := submitRequest(t, app, "", 2)
		require.Equal(t, http.StatusCreated, w.Code)

		// The request exists without its attachments.
		var requestCount, attachmentCount int
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM service_requests").Scan(&requestCount))
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM service_attachments").Scan(&attachmentCount))
		assert.Equal(t, 1, requestCount)
		assert.Zero(t, attachmentCount)
	})

	t.Run("more than four attachments is rejected", func(t *testing.T) {
		app := setupTestApp(t)

		w := submitRequest(t, app, "", 5)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var requestCount int
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM service_requests").Scan(&requestCount))
		assert.Zero(t, requestCount)
	})
}

func TestStaffRequestChat(t *testing.T) {
	t.Run("first reply moves the request to in progress", func(t *testing.T) {
		app := setupTestApp(t)
		_, staffToken := app.createUser(t, "staff", true)

		w := submitRequest(t, app, "", 0)
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "POST", "/portal/requests/1/chat", staffToken, map[string]any{
			"message": "We can have a look tomorrow.",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var status string
		require.NoError(t, app.DB.QueryRow("SELECT status FROM service_requests WHERE id = 1").Scan(&status))
		assert.Equal(t, "IN_PROGRESS", status)

		var ledgerCount int
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM activity_logs WHERE action_type = 'REQUEST_REPLY_SENT'").Scan(&ledgerCount))
		assert.Equal(t, 1, ledgerCount)

		// A second reply leaves the status where it is.
		w = app.doJSON(t, "POST", "/portal/requests/1/chat", staffToken, map[string]any{
			"message": "Parts are in stock.",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		require.NoError(t, app.DB.QueryRow("SELECT status FROM service_requests WHERE id = 1").Scan(&status))
		assert.Equal(t, "IN_PROGRESS", status)
	})

	t.Run("status change narrates into the thread with display labels", func(t *testing.T) {
		app := setupTestApp(t)
		_, staffToken := app.createUser(t, "staff", true)

		w := submitRequest(t, app, "", 0)
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "POST", "/portal/requests/1/chat", staffToken, map[string]any{
			"update_status": true,
			"new_status":    "QUOTED",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var message string
		require.NoError(t, app.DB.QueryRow("SELECT message FROM quote_messages WHERE request_id = 1").Scan(&message))
		assert.Equal(t, "Status changed from Pending Review to Quote Sent by staff", message)

		var ledgerCount int
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM activity_logs WHERE action_type = 'REQUEST_STATUS_UPDATED'").Scan(&ledgerCount))
		assert.Equal(t, 1, ledgerCount)
	})

	t.Run("unknown or identical status is a silent no-op", func(t *testing.T) {
		app := setupTestApp(t)
		_, staffToken := app.createUser(t, "staff", true)

		w := submitRequest(t, app, "", 0)
		require.Equal(t, http.StatusCreated, w.Code)

		for _, status := range []string{"SHIPPED", "PENDING"} {
			w = app.doJSON(t, "POST", "/portal/requests/1/chat", staffToken, map[string]any{
				"update_status": true,
				"new_status":    status,
			})
			require.Equal(t, http.StatusOK, w.Code)
		}

		var current string
		require.NoError(t, app.DB.QueryRow("SELECT status FROM service_requests WHERE id = 1").Scan(&current))
		assert.Equal(t, "PENDING", current)

		var messageCount int
		require.NoError(t, app.DB.QueryRow("SELECT COUNT(*) FROM quote_messages").Scan(&messageCount))
		assert.Zero(t, messageCount)
	})

	t.Run("non-staff callers are redirected to the portal login", func(t *testing.T) {
		app := setupTestApp(t)
		_, token := app.createUser(t, "ana", false)

		w := app.doJSON(t, "GET", "/portal/requests", token, nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "/portal/login?next=")
	})
}

func TestCustomerRequestChat(t *testing.T) {
	t.Run("owner reads and writes their thread", func(t *testing.T) {
		app := setupTestApp(t)
		_, token := app.createUser(t, "ana", false)

		w := submitRequest(t, app, token, 0)
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "POST", "/services/requests/1/chat", token, map[string]any{
			"message": "Any update on the repair?",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "GET", "/services/requests/1/chat", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Messages []struct {
				Sender  string `json:"sender"`
				Message string `json:"message"`
			} `json:"messages"`
		}
		decodeJSON(t, w, &resp)
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, "CUSTOMER", resp.Messages[0].Sender)
	})

	t.Run("someone else's thread bounces back to the request list", func(t *testing.T) {
		app := setupTestApp(t)
		_, ownerToken := app.createUser(t, "ana", false)
		_, otherToken := app.createUser(t, "ben", false)

		w := submitRequest(t, app, ownerToken, 0)
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "GET", "/services/requests/1/chat", otherToken, nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/services/my-requests", w.Header().Get("Location"))
	})

	t.Run("my-requests lists own submissions with labels", func(t *testing.T) {
		app := setupTestApp(t)
		_, token := app.createUser(t, "ana", false)

		w := submitRequest(t, app, token, 1)
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.doJSON(t, "GET", "/services/my-requests", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Requests []struct {
				Status      string `json:"status"`
				StatusLabel string `json:"statusLabel"`
				Attachments []struct {
					URL string `json:"url"`
				} `json:"attachments"`
			} `json:"requests"`
		}
		decodeJSON(t, w, &resp)
		require.Len(t, resp.Requests, 1)
		assert.Equal(t, "PENDING", resp.Requests[0].Status)
		assert.Equal(t, "Pending Review", resp.Requests[0].StatusLabel)
		require.Len(t, resp.Requests[0].Attachments, 1)
		assert.Contains(t, resp.Requests[0].Attachments[0].URL, "/media/")
	})
}
