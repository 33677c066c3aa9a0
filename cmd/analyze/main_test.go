package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRejectsBadDateBeforeWiring(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"clickhouse source", []string{"-date", "13/40/2020", "-source", "clickhouse"}},
		{"missing config", []string{"-date", "2017-03-31", "-config", filepath.Join(t.TempDir(), "absent.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)

			assert.Equal(t, 2, code)
			assert.Contains(t, stderr.String(), "invalid contract date")
			assert.NotContains(t, stderr.String(), "initialization failed")
			assert.NotContains(t, stderr.String(), "config load failed")
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRunRequiresDate(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: analyze")
}
