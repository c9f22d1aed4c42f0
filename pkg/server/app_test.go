package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
)

func TestRunContextClosesInReverseOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ShutdownTimeout = time.Second
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	app := New(cfg, nil, srv, nil)

	var order []string
	app.OnShutdown("clickhouse", func() error { order = append(order, "clickhouse"); return nil })
	app.OnShutdown("producer", func() error { order = append(order, "producer"); return errors.New("flush failed") })
	app.OnShutdown("nil", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorContains(t, err, "close producer: flush failed")
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, []string{"producer", "clickhouse"}, order)
}
