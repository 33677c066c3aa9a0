package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestBuildOptions(t *testing.T) {
	cfg := ClientConfig{
		Host:         "ch.local",
		Port:         9440,
		Database:     "contractscan",
		User:         "svc",
		Password:     "pw",
		UseHTTP:      true,
		AsyncInsert:  true,
		WaitForAsync: true,
		MaxExecTime:  90 * time.Second,
	}
	opts := buildOptions(cfg)

	assert.Equal(t, []string{"ch.local:9440"}, opts.Addr)
	assert.Equal(t, "contractscan", opts.Auth.Database)
	assert.Equal(t, "svc", opts.Auth.Username)
	assert.Equal(t, ch.HTTP, opts.Protocol)
	assert.Equal(t, 90, opts.Settings["max_execution_time"])
	assert.Equal(t, 1, opts.Settings["async_insert"])
	assert.Equal(t, 1, opts.Settings["wait_for_async_insert"])
}

func TestBuildOptionsDefaultsToNative(t *testing.T) {
	opts := buildOptions(ClientConfig{Host: "h", Port: 9000})
	assert.Equal(t, ch.Native, opts.Protocol)
	assert.Empty(t, opts.Settings)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
