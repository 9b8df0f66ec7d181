package bootstrap

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_Run_ReturnsRunError(t *testing.T) {
	app := New()
	err := app.Run(context.Background(), func(ctx context.Context) error {
		return fmt.Errorf("listen failed")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen failed")
}

func TestApp_Run_CompletesWithoutError(t *testing.T) {
	app := New()
	ran := false
	err := app.Run(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestApp_ShutdownHooksRunInReverseOrder(t *testing.T) {
	app := New()
	var order []string
	app.AddShutdownHook(func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	app.AddShutdownHook(func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	err := app.shutdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestApp_ShutdownCollectsHookErrors(t *testing.T) {
	app := New()
	app.AddShutdownHook(func(ctx context.Context) error {
		return fmt.Errorf("close db")
	})
	app.AddShutdownHook(func(ctx context.Context) error {
		return fmt.Errorf("close server")
	})

	err := app.shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close db")
	assert.Contains(t, err.Error(), "close server")
}
