package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func setupBenchmarkAPI(b *testing.B) *testAPI {
	b.Helper()
	return newAPI(b, zap.NewNop())
}

func (a *testAPI) mustCreate(b *testing.B, name, email string) string {
	b.Helper()
	w := a.do(http.MethodPost, "/api/users", fmt.Sprintf(`{"name":%q,"email":%q}`, name, email))
	if w.Code != http.StatusCreated {
		b.Fatalf("create %s: status %d: %s", email, w.Code, w.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		b.Fatalf("decode create response: %v", err)
	}
	return itoa(created.ID)
}

func BenchmarkRouter_CreateUser(b *testing.B) {
	api := setupBenchmarkAPI(b)

	var counter int64
	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			id := atomic.AddInt64(&counter, 1)
			w := api.do(http.MethodPost, "/api/users", fmt.Sprintf(`{"name":"User_%d","email":"user_%d@example.com"}`, id, id))
			if w.Code != http.StatusCreated {
				b.Errorf("Expected status 201, got %d", w.Code)
			}
		}
	})
}

func BenchmarkRouter_GetUser(b *testing.B) {
	api := setupBenchmarkAPI(b)
	path := "/api/users/" + api.mustCreate(b, "Test User", "test@example.com")

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			if w := api.do(http.MethodGet, path, ""); w.Code != http.StatusOK {
				b.Errorf("Expected status 200, got %d", w.Code)
			}
		}
	})
}

func BenchmarkRouter_UpdateUser(b *testing.B) {
	api := setupBenchmarkAPI(b)
	path := "/api/users/" + api.mustCreate(b, "Test User", "test@example.com")

	var counter int64
	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			id := atomic.AddInt64(&counter, 1)
			w := api.do(http.MethodPut, path, fmt.Sprintf(`{"name":"Updated_%d","email":"updated_%d@example.com"}`, id, id))
			if w.Code != http.StatusOK {
				b.Errorf("Expected status 200, got %d", w.Code)
			}
		}
	})
}

func BenchmarkRouter_DeleteUser(b *testing.B) {
	api := setupBenchmarkAPI(b)

	var counter int64
	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			id := atomic.AddInt64(&counter, 1)
			w := api.do(http.MethodPost, "/api/users", fmt.Sprintf(`{"name":"User_%d","email":"user_%d@example.com"}`, id, id))
			if w.Code != http.StatusCreated {
				b.Errorf("Create request failed with status: %d", w.Code)
				continue
			}
			var created struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
				b.Errorf("Failed to decode create response: %v", err)
				continue
			}

			if w := api.do(http.MethodDelete, "/api/users/"+itoa(created.ID), ""); w.Code != http.StatusOK {
				b.Errorf("Expected status 200, got %d", w.Code)
			}
		}
	})
}

func BenchmarkRouter_ListUsers(b *testing.B) {
	api := setupBenchmarkAPI(b)
	for i := 0; i < 50; i++ {
		api.mustCreate(b, fmt.Sprintf("User_%d", i), fmt.Sprintf("user_%d@example.com", i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			if w := api.do(http.MethodGet, "/api/users?query=user&page=1&limit=10", ""); w.Code != http.StatusOK {
				b.Errorf("Expected status 200, got %d", w.Code)
			}
		}
	})
}

func BenchmarkRouter_MixedWorkload(b *testing.B) {
	api := setupBenchmarkAPI(b)

	var paths []string
	for i := 0; i < 10; i++ {
		paths = append(paths, "/api/users/"+api.mustCreate(b, fmt.Sprintf("User_%d", i), fmt.Sprintf("user_%d@example.com", i)))
	}

	var counter int64
	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(p *testing.PB) {
		for p.Next() {
			n := atomic.AddInt64(&counter, 1)
			path := paths[n%int64(len(paths))]

			switch n % 4 {
			case 0:
				api.do(http.MethodPost, "/api/users", fmt.Sprintf(`{"name":"Mixed_%d","email":"mixed_%d@example.com"}`, n, n))
			case 1:
				api.do(http.MethodGet, path, "")
			case 2:
				api.do(http.MethodPatch, path, fmt.Sprintf(`{"name":"Updated_%d"}`, n))
			case 3:
				api.do(http.MethodGet, "/api/users?page=1&limit=10", "")
			}
		}
	})
}
