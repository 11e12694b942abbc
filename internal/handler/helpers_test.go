package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nasidaunjeruk/pos/internal/cart"
	"github.com/nasidaunjeruk/pos/internal/enum"
	"github.com/nasidaunjeruk/pos/internal/ledger"
	"github.com/nasidaunjeruk/pos/internal/menu"
	"github.com/nasidaunjeruk/pos/internal/service"
	"github.com/nasidaunjeruk/pos/internal/storage"
	"github.com/shopspring/decimal"
)

const testSecret = "test-secret"

var ledgerAll = ledger.Filter{}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testCatalog() *menu.Catalog {
	return menu.NewCatalog(
		menu.MenuItem{
			ID:        "nasi",
			Name:      "Nasi Daun Jeruk",
			Category:  enum.CategoryNasi,
			BasePrice: dec(10000),
			ToppingOptions: map[string]menu.Topping{
				"ayam": {Key: "ayam", Name: "Ayam Suwir", Price: dec(5000)},
			},
		},
		menu.MenuItem{ID: "teh", Name: "Es Teh", Category: enum.CategoryMinuman, BasePrice: dec(5000)},
	)
}

// newTestPOS wires a POS over an in-memory store with no sync queue.
func newTestPOS() *service.POS {
	store := storage.NewMemory()
	catalog := testCatalog()
	cm := cart.NewManager(catalog, cart.NoDiscount{}, store)
	return service.NewPOS(catalog, cm, ledger.New(store), nil, nil, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, http.MethodPost, path, body)
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}
