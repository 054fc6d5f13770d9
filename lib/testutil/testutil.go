package testutil

import (
	"fmt"
	"testing"

	"pricetracker/lib/pricestore"
	"pricetracker/lib/telemetry"
)

type ServiceParams struct {
	Name string
	// if unspecified, a fresh scratch directory is used
	DataDir string
}

type ServiceResult struct {
	Store   pricestore.Store
	DataDir string
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(fmt.Sprintf("test:%s", params.Name))

	dir := params.DataDir
	if dir == "" {
		dir = t.TempDir()
	}
	store, err := pricestore.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	return ServiceResult{
		Store:   store,
		DataDir: dir,
	}, cleanup
}
