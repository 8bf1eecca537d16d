package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return NewWithService(svc)
}

func TestReadRows(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"range":"Sheet1!A1:C3","values":[["Date","Description","Amount"],["2024-05-01"," Rent ",2200],["2024-05-02","Bus"]]}`)
	})

	rows, err := c.ReadRows(context.Background(), "sheet-id", "Sheet1")
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if !strings.Contains(gotPath, "/spreadsheets/sheet-id/values/Sheet1!A:Z") {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if len(rows) != 3 || rows[1][1] != "Rent" || rows[1][2] != "2200" || len(rows[2]) != 2 {
		t.Fatalf("unexpected rows %q", rows)
	}
}

func TestReadRowsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	})
	if _, err := c.ReadRows(context.Background(), "missing", ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAppendRows(t *testing.T) {
	var body gsheet.ValueRange
	var query string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"updates":{"updatedRange":"Export!A5:H6"}}`)
	})

	ref, err := c.AppendRows(context.Background(), "sheet-id", "Export", [][]string{{"2024-05-01", "10"}, {"2024-05-02", "5"}})
	if err != nil {
		t.Fatalf("AppendRows: %v", err)
	}
	if ref != "Export!A5:H6" {
		t.Fatalf("ref = %q", ref)
	}
	if len(body.Values) != 2 || body.Values[1][1] != "5" {
		t.Fatalf("unexpected body %+v", body.Values)
	}
	if !strings.Contains(query, "valueInputOption=USER_ENTERED") {
		t.Fatalf("unexpected query %q", query)
	}
}

func TestNilServiceFails(t *testing.T) {
	c := &Client{}
	if _, err := c.ReadRows(context.Background(), "id", ""); err == nil {
		t.Fatalf("expected error for uninitialized service")
	}
	if _, err := c.AppendRows(context.Background(), "id", "", nil); err == nil {
		t.Fatalf("expected error for uninitialized service")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(context.Background(), Credentials{}); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
	missing := filepath.Join(t.TempDir(), "nope.json")
	if _, err := New(context.Background(), Credentials{File: missing}); err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
	if (Credentials{File: " "}).Configured() {
		t.Fatalf("blank credentials should not count as configured")
	}
}
