package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"useeio/internal/core"
	"useeio/internal/matrix"
	"useeio/pkg/domain"
	"useeio/testutil"
)

func TestDiscoverSkipsInvalidModels(t *testing.T) {
	incomplete := testutil.ScenarioParts("NO_L")
	delete(incomplete.Matrices, matrix.L)
	misshapen := testutil.ScenarioParts("BAD_SHAPE")
	misshapen.Matrices[matrix.C] = testutil.MustMatrix([][]float64{{1, 2}})
	contradictory := testutil.ScenarioParts("BAD_D")
	contradictory.Matrices[matrix.D] = testutil.MustMatrix([][]float64{{2, 2, 2}})
	src := newPartsSource(testutil.ScenarioParts("M1"), testutil.RichParts("RICH"), incomplete, misshapen, contradictory)
	src.loadErr["BROKEN"] = errors.New("disk on fire")
	src.models["BROKEN"] = testutil.ScenarioParts("BROKEN")

	reg := core.NewModelRegistry()
	report, err := core.Discover(context.Background(), src, reg, core.DiscoverOptions{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"M1", "RICH"}, report.Admitted)
	assert.Equal(t, []string{"M1", "RICH"}, reg.IDs())
	require.Len(t, report.Skipped, 4)
	assert.ErrorIs(t, report.Skipped["BAD_D"], domain.ErrInvalidArgument)
	assert.ErrorIs(t, report.Skipped["NO_L"], domain.ErrModelIncomplete)
	assert.ErrorContains(t, report.Skipped["BROKEN"], "disk on fire")
	assert.Error(t, report.Skipped["BAD_SHAPE"])
}

func TestDiscoverLeavesRegistryOnFailure(t *testing.T) {
	old := testutil.Scenario("OLD")
	reg := core.NewModelRegistry(old)

	src := newPartsSource(testutil.ScenarioParts("NEW"))
	src.listErr = errors.New("listing failed")
	_, err := core.Discover(context.Background(), src, reg, core.DiscoverOptions{})
	require.Error(t, err)
	assert.Equal(t, []string{"OLD"}, reg.IDs())

	src = newPartsSource(testutil.ScenarioParts("NEW"), testutil.ScenarioParts("NEWER"))
	src.gate = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := core.Discover(ctx, src, reg, core.DiscoverOptions{Concurrency: 1})
		done <- err
	}()
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.loads > 0
	}, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []string{"OLD"}, reg.IDs())
}

func TestDiscoverReplacesPublishedSet(t *testing.T) {
	reg := core.NewModelRegistry(testutil.Scenario("OLD"))
	_, err := core.Discover(context.Background(), newPartsSource(testutil.ScenarioParts("NEW")), reg, core.DiscoverOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"NEW"}, reg.IDs())
	_, err = reg.Get("OLD")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistryReadersSeeWholeSnapshots(t *testing.T) {
	setA := []*core.Model{testutil.Scenario("A1"), testutil.Scenario("A2")}
	setB := []*core.Model{testutil.Scenario("B1"), testutil.Scenario("B2"), testutil.Scenario("B3")}
	reg := core.NewModelRegistry(setA...)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				ids := reg.IDs()
				switch len(ids) {
				case 2:
					if ids[0] != "A1" || ids[1] != "A2" {
						errs <- "mixed snapshot"
						return
					}
				case 3:
					if ids[0] != "B1" || ids[2] != "B3" {
						errs <- "mixed snapshot"
						return
					}
				default:
					errs <- "unexpected size"
					return
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			reg.Publish(setB...)
		} else {
			reg.Publish(setA...)
		}
	}
	close(stop)
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatal(msg)
	}
}

func TestModelRegistryGet(t *testing.T) {
	var empty core.ModelRegistry
	_, err := empty.Get("M1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, empty.Len())

	reg := core.NewModelRegistry(testutil.Scenario("Z"), nil, testutil.Scenario("A"))
	assert.Equal(t, 2, reg.Len())
	models := reg.Models()
	require.Len(t, models, 2)
	assert.Equal(t, "A", models[0].ID())
	m, err := reg.Get("Z")
	require.NoError(t, err)
	assert.Equal(t, "Scenario model", m.Info().Name)
}
