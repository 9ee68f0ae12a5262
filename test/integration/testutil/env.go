package testutil

import (
	"fmt"
	"os"
	"testing"
)

const DefaultHealthCheckTimeout = 3 * ConnectionTimeout

// TestEnv describes the externally running stack the suite talks to.
type TestEnv struct {
	MongoURI     string
	DatabaseName string
	ServerURL    string
	ServerPort   string
}

func NewTestEnv() *TestEnv {
	serverPort := getEnv("TEST_SERVER_PORT", "8080")
	serverURL := getEnv("TEST_SERVER_URL", fmt.Sprintf("http://localhost:%s", serverPort))

	return &TestEnv{
		MongoURI:     getEnv("TEST_MONGO_URI", DefaultMongoURI),
		DatabaseName: getEnv("TEST_DB_NAME", DefaultDatabaseName),
		ServerURL:    serverURL,
		ServerPort:   serverPort,
	}
}

// Setup skips the test unless an integration server is configured, then
// waits for it to report healthy. Tests create their own accounts and
// properties, so no state is cleaned between runs.
func (e *TestEnv) Setup(t *testing.T) *Client {
	t.Helper()

	if os.Getenv("TEST_SERVER_URL") == "" && os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("set TEST_SERVER_URL (or TEST_INTEGRATION=1) to run integration tests")
	}

	client := NewClient(e.ServerURL)
	client.WaitForHealthy(t, DefaultHealthCheckTimeout)
	return client
}

// SetupMongo connects to the backing database for direct state
// verification. Skips unless TEST_MONGO_URI is set, so the suite also
// runs against a server on the memory backend.
func (e *TestEnv) SetupMongo(t *testing.T) *MongoHelper {
	t.Helper()

	if os.Getenv("TEST_MONGO_URI") == "" {
		t.Skip("set TEST_MONGO_URI to run tests that inspect the database")
	}
	return NewMongoHelper(t, e.MongoURI, e.DatabaseName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
