// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func withServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	oldBase := BaseURL
	BaseURL = srv.URL + "/record/"
	t.Cleanup(func() { BaseURL = oldBase })
	return &Client{HTTP: srv.Client()}
}

func TestFetchSuccess(t *testing.T) {
	c := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"inspire_record": 42}`))
	})
	body, err := c.Fetch(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"inspire_record": 42}` {
		t.Errorf("body = %q", body)
	}
}

func TestFetchNotFoundMarker(t *testing.T) {
	c := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>we weren't able to find what you were looking for</html>"))
	})
	_, err := c.Fetch(context.Background(), 99)
	if err == nil {
		t.Fatal("expected ErrNotFound")
	}
}

func TestFetchAndCacheSkipsExisting(t *testing.T) {
	calls := 0
	c := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{}`))
	})
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "publication.json"), []byte(`{"cached":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.FetchAndCache(context.Background(), dir, 1); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("expected no HTTP call for an already-cached publication, got %d", calls)
	}
}

func TestFetchAndCacheWritesFile(t *testing.T) {
	c := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})
	dir := t.TempDir()
	if err := c.FetchAndCache(context.Background(), dir, 7); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "publication.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("data = %q", data)
	}
}

func TestFetchAndCacheAbsorbsNotFound(t *testing.T) {
	c := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("we weren't able to find what you were looking for"))
	})
	dir := t.TempDir()
	if err := c.FetchAndCache(context.Background(), dir, 7); err != nil {
		t.Fatalf("expected not-found to be absorbed as a warning, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "publication.json")); err == nil {
		t.Error("no file should be written for a not-found publication")
	}
}
