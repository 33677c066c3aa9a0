package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalrepo "ContractScan/internal/repository"
	"ContractScan/internal/usecase"
	applogger "ContractScan/pkg/logger"
)

func TestDispatch(t *testing.T) {
	store := internalrepo.NewCSVSupplierStore(filepath.Join(t.TempDir(), "suppliers.csv"))
	r := usecase.NewSupplierRegistry(store, applogger.Nop())
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, dispatch(ctx, r, &out, "seed", nil))
	assert.Contains(t, out.String(), "seeded 55 suppliers")

	out.Reset()
	require.NoError(t, dispatch(ctx, r, &out, "add", []string{"-name", "Acme Composites", "-ticker", "ACME", "-tier", "3"}))
	assert.Contains(t, out.String(), "added Acme Composites")

	out.Reset()
	require.NoError(t, dispatch(ctx, r, &out, "update", []string{"-name", "Acme Composites", "Tier_Level=2", "Location=Ogden, UT"}))
	assert.Contains(t, out.String(), "Ogden, UT")

	out.Reset()
	require.NoError(t, dispatch(ctx, r, &out, "public", []string{"-tier", "2"}))
	assert.Contains(t, out.String(), "Acme Composites")

	require.NoError(t, dispatch(ctx, r, &out, "delete", []string{"-name", "Acme Composites"}))
	all, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 55)

	assert.ErrorIs(t, dispatch(ctx, r, &out, "update", []string{"-name", "Hexcel", "Tier_Level"}), errUsage)
	assert.ErrorIs(t, dispatch(ctx, r, &out, "frobnicate", nil), errUsage)
}
