package dynamo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/require"
)

// call is one DynamoDB API request seen by fakeDynamo.
type call struct {
	Op   string
	Body map[string]interface{}
}

// reply answers one operation with an HTTP status and a JSON body.
type reply func(op string, body map[string]interface{}) (int, interface{})

// fakeDynamo serves the DynamoDB JSON protocol from reply and records every call.
type fakeDynamo struct {
	mu    sync.Mutex
	calls []call
}

func newFakeDynamo(t *testing.T, fn reply) (*dynamodb.Client, *fakeDynamo) {
	t.Helper()
	f := &fakeDynamo{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := strings.TrimPrefix(r.Header.Get("X-Amz-Target"), "DynamoDB_20120810.")
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.calls = append(f.calls, call{Op: op, Body: body})
		f.mu.Unlock()

		status, out := fn(op, body)
		w.Header().Set("Content-Type", "application/x-amz-json-1.0")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)

	client := dynamodb.New(dynamodb.Options{
		Region:           "us-east-1",
		BaseEndpoint:     aws.String(srv.URL),
		Credentials:      credentials.NewStaticCredentialsProvider("test", "test", ""),
		RetryMaxAttempts: 1,
	})
	return client, f
}

func (f *fakeDynamo) last(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func (f *fakeDynamo) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Op
	}
	return out
}

func awsError(code, msg string) map[string]string {
	return map[string]string{"__type": "com.amazonaws.dynamodb.v20120810#" + code, "message": msg}
}

// attr digs a typed attribute out of a request item, e.g. attr(item, "email", "S").
func attr(t *testing.T, item interface{}, name, typ string) string {
	t.Helper()
	m, ok := item.(map[string]interface{})
	require.True(t, ok, "item is %T", item)
	av, ok := m[name].(map[string]interface{})
	require.True(t, ok, "attribute %s missing", name)
	v, ok := av[typ].(string)
	require.True(t, ok, "attribute %s is not %s", name, typ)
	return v
}
