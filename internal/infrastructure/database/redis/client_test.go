package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

func newTestClient(t *testing.T, cfg RedisConfig) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg.Addr = mr.Addr()
	client, err := NewClient(context.Background(), &cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Standalone(t *testing.T) {
	client, _ := newTestClient(t, RedisConfig{})
	assert.NoError(t, client.HealthCheck(context.Background()))
	assert.Equal(t, "contractkeeper:lock:x", client.Key("lock:x"))
}

func TestNewClient_KeyPrefix(t *testing.T) {
	client, _ := newTestClient(t, RedisConfig{Mode: ModeStandalone, KeyPrefix: "staging:"})
	assert.Equal(t, "staging:lock:x", client.Key("lock:x"))
}

func TestNewClient_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  RedisConfig
	}{
		{"unknown mode", RedisConfig{Mode: "ring", Addr: "localhost:6379"}},
		{"cluster without addrs", RedisConfig{Mode: ModeCluster}},
		{"sentinel without addrs", RedisConfig{Mode: ModeSentinel, MasterName: "mymaster"}},
		{"missing ca file", RedisConfig{Addr: "localhost:6379", TLSEnabled: true, TLSCAFile: "/does/not/exist.pem"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), &tt.cfg, logging.NewNopLogger())
			assert.Nil(t, client)
			assert.True(t, errors.IsCode(err, errors.ErrCodeConfigError), "got %v", err)
		})
	}
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	cfg := &RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1}
	client, err := NewClient(context.Background(), cfg, logging.NewNopLogger())
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestUniversalOptions(t *testing.T) {
	opts, err := universalOptions(&RedisConfig{Mode: ModeCluster, ClusterAddrs: []string{"a:7000", "b:7000"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a:7000", "b:7000"}, opts.Addrs)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)

	opts, err = universalOptions(&RedisConfig{Mode: ModeSentinel, MasterName: "mymaster", SentinelAddrs: []string{"s:26379"}})
	require.NoError(t, err)
	assert.Equal(t, "mymaster", opts.Failover().MasterName)

	opts, err = universalOptions(&RedisConfig{Addr: "localhost:6379", TLSEnabled: true})
	require.NoError(t, err)
	require.NotNil(t, opts.TLSConfig)
	assert.Nil(t, opts.TLSConfig.RootCAs)
}

func TestClient_Close(t *testing.T) {
	client, _ := newTestClient(t, RedisConfig{})

	require.NoError(t, client.Close())
	require.NoError(t, client.Close(), "second close is a no-op")
	assert.Equal(t, ErrClientClosed, client.HealthCheck(context.Background()))

	_, err := NewLocker(client, logging.NewNopLogger()).NewMutex("m").TryLock(context.Background())
	assert.Equal(t, ErrClientClosed, err)
}

//Personal.AI order the ending
