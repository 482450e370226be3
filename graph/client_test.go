package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor scripts the outcome of each attempt and records how many
// attempts were made.
type fakeExecutor struct {
	readAttempts  int
	writeAttempts int

	// failures is the number of leading attempts that fail transiently.
	failures int

	// err overrides the scripted transient failure with a fixed error.
	err error

	rows []map[string]any
}

func (f *fakeExecutor) ReadQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.readAttempts++
	return f.attempt(f.readAttempts)
}

func (f *fakeExecutor) WriteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.writeAttempts++
	return f.attempt(f.writeAttempts)
}

func (f *fakeExecutor) Close(ctx context.Context) error { return nil }

func (f *fakeExecutor) attempt(n int) ([]map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if n <= f.failures {
		return nil, fmt.Errorf("%w: connection reset", ErrTransient)
	}
	return f.rows, nil
}

func testConfig() Config {
	return Config{
		RetryCount: 3,
		RetryDelay: time.Millisecond,
		PrimaryKeys: map[string][]string{
			"FILE":    {"artifact"},
			"PROCESS": {"artifact"},
			"Trace":   {"unit_id", "trace_id"},
		},
	}
}

func TestClientRun_SucceedsAfterTransientFailures(t *testing.T) {
	exec := &fakeExecutor{
		failures: 2,
		rows:     []map[string]any{{"n": int64(1)}},
	}
	client := newClient(exec, testConfig())

	rows, err := client.Run(context.Background(), "MATCH (n) RETURN count(n) AS n", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, exec.readAttempts, "two transient failures then success must take exactly 3 attempts")
	assert.Equal(t, int64(1), rows[0]["n"])
}

func TestClientRun_ExhaustsRetries(t *testing.T) {
	exec := &fakeExecutor{failures: 10}
	client := newClient(exec, testConfig())

	_, err := client.Run(context.Background(), "MATCH (n) RETURN n", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient), "the underlying failure must surface after exhausting retries")
	assert.Equal(t, 3, exec.readAttempts, "retryCount=3 means exactly 3 attempts")
}

func TestClientRun_NonTransientFailsImmediately(t *testing.T) {
	boom := errors.New("syntax error")
	exec := &fakeExecutor{err: boom}
	client := newClient(exec, testConfig())

	_, err := client.Run(context.Background(), "MTACH (n)", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, exec.readAttempts, "non-transient failures are never retried")
}

func TestClientRun_ContextCancelledDuringBackoff(t *testing.T) {
	exec := &fakeExecutor{failures: 10}
	cfg := testConfig()
	cfg.RetryDelay = time.Hour
	client := newClient(exec, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	// The second backoff sleeps RetryDelay * 1² = 1h; cancellation must
	// cut it short.
	_, err := client.Run(ctx, "MATCH (n) RETURN n", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClientMergeNode_Retries(t *testing.T) {
	exec := &fakeExecutor{failures: 1}
	client := newClient(exec, testConfig())

	node := NewNode("FILE").WithProperty("artifact", "a@FILE")
	err := client.MergeNode(context.Background(), node, "FILE", "artifact")
	require.NoError(t, err)
	assert.Equal(t, 2, exec.writeAttempts)
}

func TestClientMergeNode_MissingKeyNotRetried(t *testing.T) {
	exec := &fakeExecutor{}
	client := newClient(exec, testConfig())

	node := NewNode("FILE")
	err := client.MergeNode(context.Background(), node, "FILE", "artifact")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Zero(t, exec.writeAttempts, "caller errors never reach the database")
}

func TestClientCreateRelation(t *testing.T) {
	exec := &fakeExecutor{rows: []map[string]any{{"rid": "4:abc:1"}}}
	client := newClient(exec, testConfig())

	rel := NewRelationship(
		NewNode("PROCESS").WithProperty("artifact", "p@PROCESS"),
		NewNode("FILE").WithProperty("artifact", "f@FILE"),
		"CREATE",
	)
	err := client.CreateRelation(context.Background(), rel)
	require.NoError(t, err)
	assert.Equal(t, 1, exec.writeAttempts)
}

func TestClientCreateRelation_UnmappedLabel(t *testing.T) {
	exec := &fakeExecutor{}
	cfg := testConfig()
	cfg.PrimaryKeys = map[string][]string{"PROCESS": {"artifact"}}
	client := newClient(exec, cfg)

	rel := NewRelationship(
		NewNode("PROCESS").WithProperty("artifact", "p@PROCESS"),
		NewNode("Rule").WithProperty("rule_id", "r-1"),
		"MATCHES",
	)
	err := client.CreateRelation(context.Background(), rel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Zero(t, exec.writeAttempts)
}
