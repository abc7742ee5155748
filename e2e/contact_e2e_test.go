//go:build e2e
// +build e2e

package e2e

// These tests expect a running `contact serve` with no email backend
// configured, OPERATOR_LOG_SINKS=mysql and CONTACT_RATE_LIMIT of at least 10.

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	grpcserver "github.com/vibast-solutions/ms-go-contact/app/grpc"
	"github.com/vibast-solutions/ms-go-contact/app/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	defaultHTTPBase = "http://localhost:5000"
	defaultGRPCAddr = "localhost:9090"
	defaultMySQLDSN = "root:root@tcp(localhost:3307)/contact?parseTime=true"

	e2eMessage = "Hello from the end to end suite, please ignore."
)

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return resp, decoded
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func waitForGRPC(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("grpc service not ready at %s", addr)
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("mysql", envOr("CONTACT_MYSQL_DSN", defaultMySQLDSN))
	if err != nil {
		t.Fatalf("open db failed: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping db failed: %v", err)
	}
	return db
}

func waitForEvent(t *testing.T, db *sql.DB, email string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var count int
		err := db.QueryRow(
			"SELECT COUNT(*) FROM operator_events WHERE event = ? AND detail LIKE ?",
			service.EventSubmissionUnsent, "%"+email+"%",
		).Scan(&count)
		if err != nil {
			t.Fatalf("db query failed: %v", err)
		}
		if count > 0 {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for operator event for %s", email)
}

func TestContactE2E(t *testing.T) {
	httpBase := envOr("CONTACT_HTTP_URL", defaultHTTPBase)
	grpcAddr := envOr("CONTACT_GRPC_ADDR", defaultGRPCAddr)

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}
	if err := waitForGRPC(grpcAddr, 30*time.Second); err != nil {
		t.Fatalf("grpc not ready: %v", err)
	}

	db := openDB(t)
	defer db.Close()

	client := newHTTPClient(httpBase)

	t.Run("HTTPValidation", func(t *testing.T) {
		resp, body := client.postJSON(t, "/api/contact", map[string]string{})
		if resp.StatusCode != http.StatusBadRequest || body["error"] != "Validation failed" {
			t.Fatalf("expected 400 for missing fields, got %d %v", resp.StatusCode, body)
		}

		resp, _ = client.postJSON(t, "/api/contact", map[string]string{
			"name":    "E2E",
			"email":   "invalid",
			"message": e2eMessage,
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid email, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPAcknowledgedWithoutBackend", func(t *testing.T) {
		email := fmt.Sprintf("e2e-http-%d@example.com", time.Now().UnixNano())
		resp, body := client.postJSON(t, "/api/contact", map[string]string{
			"name":    "E2E",
			"email":   email,
			"message": e2eMessage,
		})
		if resp.StatusCode != http.StatusOK || body["message"] != service.MessageSent {
			t.Fatalf("contact submit failed: %d %v", resp.StatusCode, body)
		}
		waitForEvent(t, db, email, 20*time.Second)
	})

	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc client failed: %v", err)
	}
	defer conn.Close()

	grpcClient := grpcserver.NewClient(conn)

	t.Run("GRPCValidation", func(t *testing.T) {
		_, err := grpcClient.Submit(context.Background(), "", "", "")
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("expected InvalidArgument, got %v", err)
		}
	})

	t.Run("GRPCAcknowledgedWithoutBackend", func(t *testing.T) {
		email := fmt.Sprintf("e2e-grpc-%d@example.com", time.Now().UnixNano())
		resp, err := grpcClient.Submit(context.Background(), "E2E", email, e2eMessage)
		if err != nil {
			t.Fatalf("grpc submit failed: %v", err)
		}
		if !resp.GetFields()["success"].GetBoolValue() {
			t.Fatalf("expected success, got %v", resp)
		}
		waitForEvent(t, db, email, 20*time.Second)
	})
}
