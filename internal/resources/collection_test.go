package resources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdesk/internal/gateway"
	"stockdesk/internal/session"
	"stockdesk/pkg/listing"
)

func newTestClient(t *testing.T, handler http.Handler) *gateway.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := session.NewStore(session.StoreConfig{StorageDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, store.Save(
		session.CredentialPair{AccessToken: "a", RefreshToken: "r"},
		session.Identity{ID: "1"},
	))

	client, err := gateway.NewClient(gateway.Config{BaseURL: server.URL}, session.NewLifecycle(store, nil))
	require.NoError(t, err)
	return client
}

func TestCollection_ListNormalizesBothShapes(t *testing.T) {
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/roles/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"admin"},{"id":2,"name":"clerk"},{"id":3,"name":"viewer"}]`)
	})
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_, _ = io.WriteString(w, `{"count":3,"next":null,"previous":"x","results":[{"id":3,"sku":"C","name":"Clamp","stock":0}]}`)
			return
		}
		assert.Equal(t, "bolt", r.URL.Query().Get("search"))
		next := serverURL + "/api/products/?page=2"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count":    3,
			"next":     next,
			"previous": nil,
			"results": []map[string]any{
				{"id": 1, "sku": "A", "name": "Bolt", "stock": 10},
				{"id": "2", "sku": "B", "name": "Bolt XL", "stock": 4},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	serverURL = server.URL

	store, err := session.NewStore(session.StoreConfig{StorageDir: t.TempDir()})
	require.NoError(t, err)
	client, err := gateway.NewClient(gateway.Config{BaseURL: server.URL}, session.NewLifecycle(store, nil))
	require.NoError(t, err)

	roles, err := Roles(client).List(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, roles.Count)
	assert.False(t, roles.HasMore())
	assert.Equal(t, "clerk", roles.Results[1].Name)

	products := Products(client)
	page, err := products.List(context.Background(), ListOptions{Search: "bolt"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count, "server count is trusted, not recomputed")
	require.Len(t, page.Results, 2)
	assert.Equal(t, ID("2"), page.Results[1].ID)
	assert.True(t, page.HasMore())

	second, err := products.Next(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.Equal(t, "Clamp", second.Results[0].Name)
	assert.False(t, second.HasMore())

	_, err = products.Next(context.Background(), second)
	assert.Error(t, err)
}

func TestCollection_NextStaysOnAPIOrigin(t *testing.T) {
	var foreignCalls int
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignCalls++
		_, _ = io.WriteString(w, `[]`)
	}))
	defer foreign.Close()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer a", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"count":2,"next":null,"previous":null,"results":[{"id":2,"name":"Nut"}]}`)
	}))
	products := Products(client)

	t.Run("other host is refused", func(t *testing.T) {
		_, err := products.Next(context.Background(), listingPage(foreign.URL+"/api/products/?page=2"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not the API origin")
		assert.Zero(t, foreignCalls)
	})

	t.Run("other scheme is refused", func(t *testing.T) {
		next := "https" + strings.TrimPrefix(client.BaseURL(), "http") + "/api/products/?page=2"
		_, err := products.Next(context.Background(), listingPage(next))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not the API origin")
	})

	t.Run("same origin is followed", func(t *testing.T) {
		next := strings.TrimSuffix(client.BaseURL(), "/") + "/api/products/?page=2"
		second, err := products.Next(context.Background(), listingPage(next))
		require.NoError(t, err)
		require.Len(t, second.Results, 1)
		assert.Equal(t, "Nut", second.Results[0].Name)
	})
}

func listingPage(next string) listing.Envelope[Product] {
	return listing.Envelope[Product]{Count: 2, Next: &next, Results: []Product{{Name: "Bolt"}}}
}

func TestCollection_CRUD(t *testing.T) {
	var lastMethod, lastPath string
	var lastBody map[string]any

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastMethod, lastPath = r.Method, r.URL.Path
		lastBody = nil
		_ = json.NewDecoder(r.Body).Decode(&lastBody)
		assert.Equal(t, "Bearer a", r.Header.Get("Authorization"))

		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":9,"name":"North","location":"Oslo","company":7}`)
		default:
			_, _ = io.WriteString(w, `{"id":9,"name":"North","location":"Bergen","company":7}`)
		}
	}))

	warehouses := Warehouses(client)
	ctx := context.Background()

	created, err := warehouses.Create(ctx, Warehouse{Name: "North", Location: "Oslo", CompanyID: "7"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, lastMethod)
	assert.Equal(t, "/api/warehouses/", lastPath)
	assert.Equal(t, float64(7), lastBody["company"])
	assert.Nil(t, lastBody["id"], "unsaved record has a null id")
	assert.Equal(t, ID("9"), created.ID)

	updated, err := warehouses.Update(ctx, created.ID, map[string]string{"location": "Bergen"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, lastMethod)
	assert.Equal(t, "/api/warehouses/9/", lastPath)
	assert.Equal(t, "Bergen", updated.Location)

	got, err := warehouses.Get(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, lastMethod)
	assert.Equal(t, "North", got.Name)

	require.NoError(t, warehouses.Delete(ctx, "9"))
	assert.Equal(t, http.MethodDelete, lastMethod)
	assert.Equal(t, "/api/warehouses/9/", lastPath)
}

func TestCollection_ValidationPassesThrough(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"sku":["product with this sku already exists."]}`)
	}))

	_, err := Products(client).Create(context.Background(), Product{SKU: "A", Name: "Bolt"})
	var validation *gateway.ValidationRejected
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, []string{"product with this sku already exists."}, validation.Fields["sku"])
}

func TestID_JSON(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"x-1","c":null}`), &v))
	assert.Equal(t, ID("12"), v.A)
	assert.Equal(t, ID("x-1"), v.B)
	assert.Equal(t, ID(""), v.C)

	out, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}{A: "12", B: "007", C: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12,"b":"007","c":"x"}`, string(out))
}

func TestLookupKind(t *testing.T) {
	k, err := LookupKind("Products")
	require.NoError(t, err)
	assert.Equal(t, "/api/products/", k.Path)

	k, err = LookupKind("wh")
	require.NoError(t, err)
	assert.Equal(t, KindWarehouses.Name, k.Name)

	_, err = LookupKind("invoices")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "companies, movements, products, roles, users, warehouses")
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{Username: "ada", FirstName: "Ada", LastName: "Lovelace"}.DisplayName())
	assert.Equal(t, "Ada", User{Username: "ada", FirstName: "Ada"}.DisplayName())
	assert.Equal(t, "ada", User{Username: "ada"}.DisplayName())
}

func TestTypedCollections(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))

	assert.Equal(t, KindCompanies.Path, Companies(client).Path())
	assert.Equal(t, KindWarehouses.Path, Warehouses(client).Path())
	assert.Equal(t, KindProducts.Path, Products(client).Path())
	assert.Equal(t, KindUsers.Path, Users(client).Path())
	assert.Equal(t, KindRoles.Path, Roles(client).Path())
	assert.Equal(t, KindMovements.Path, Movements(client).Path())

	movements, err := Movements(client).List(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, movements.Count)
	assert.Empty(t, movements.Results)
}
