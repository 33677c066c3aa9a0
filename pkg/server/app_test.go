package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "ContractScan/pkg/logger"
)

type fakeComponent struct {
	name     string
	startErr error
	log      *[]string
}

func (f *fakeComponent) Start() error {
	*f.log = append(*f.log, "start "+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	*f.log = append(*f.log, "stop "+f.name)
	return nil
}

func TestRunStopsInReverseOrder(t *testing.T) {
	var log []string
	app := New(applogger.Nop(), time.Second)
	app.Add("http", &fakeComponent{name: "http", log: &log})
	app.Add("consumer", &fakeComponent{name: "consumer", log: &log})
	app.Add("absent", nil)
	app.OnClose("clickhouse", func() error { log = append(log, "close clickhouse"); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.Run(ctx))

	assert.Equal(t, []string{"start http", "start consumer", "stop consumer", "stop http", "close clickhouse"}, log)
}

func TestRunStartFailureStopsStartedComponents(t *testing.T) {
	var log []string
	boom := errors.New("port in use")
	app := New(applogger.Nop(), time.Second)
	app.Add("dispatcher", &fakeComponent{name: "dispatcher", log: &log})
	app.Add("http", &fakeComponent{name: "http", startErr: boom, log: &log})

	err := app.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start dispatcher", "start http", "stop dispatcher"}, log)
}
