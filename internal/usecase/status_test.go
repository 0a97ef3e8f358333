package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/services/inference"
)

type fakeModelStore struct {
	dep *models.ModelDeployment
	err error
}

func (f *fakeModelStore) Active(_ context.Context) (*models.ModelDeployment, error) {
	return f.dep, f.err
}

func (f *fakeModelStore) Deploy(_ context.Context, dep models.ModelDeployment) error {
	f.dep = &dep
	return nil
}

func testStatus(t *testing.T, store *fakeTickStore, ms *fakeModelStore) *StatusAggregator {
	t.Helper()
	engine := inference.NewEngine(inference.NewLinearModel(""), &fakePredictionStore{}, nopMetrics{}, testLogger(t), inference.Options{})
	return NewStatusAggregator(store, ms, engine, testLogger(t), StatusOptions{})
}

func TestSystemStatusAllHealthy(t *testing.T) {
	store := &fakeTickStore{counts: map[string]int{"binance": 120, "kraken": 80}}
	ms := &fakeModelStore{dep: &models.ModelDeployment{
		Version:    "linear-v1",
		DeployedAt: time.Now().Add(-24 * time.Hour),
		Status:     "active",
	}}

	status := testStatus(t, store, ms).SystemStatus(context.Background())
	if !status.DataFeeds.Healthy {
		t.Fatalf("feeds should be healthy: %+v", status.DataFeeds)
	}
	if !status.Model.Healthy {
		t.Fatalf("model should be healthy: %+v", status.Model)
	}
	if !status.Inference.Healthy {
		t.Fatalf("idle inference should be healthy: %+v", status.Inference)
	}
	if !status.Overall {
		t.Fatal("overall should be healthy")
	}
}

func TestSystemStatusStaleModelFailsOverall(t *testing.T) {
	store := &fakeTickStore{counts: map[string]int{"binance": 120}}
	ms := &fakeModelStore{dep: &models.ModelDeployment{
		Version:    "linear-v1",
		DeployedAt: time.Now().Add(-8 * 24 * time.Hour),
		Status:     "active",
	}}

	status := testStatus(t, store, ms).SystemStatus(context.Background())
	if status.Model.Healthy {
		t.Fatalf("8-day-old model should be stale: %+v", status.Model)
	}
	if status.Overall {
		t.Fatal("overall must AND all sub-checks")
	}
	if status.DataFeeds.Healthy != true {
		t.Fatal("feeds sub-check should be independent")
	}
}

func TestSystemStatusNoActiveModel(t *testing.T) {
	store := &fakeTickStore{counts: map[string]int{"binance": 120}}
	ms := &fakeModelStore{}

	status := testStatus(t, store, ms).SystemStatus(context.Background())
	if status.Model.Healthy || status.Model.ActiveExists {
		t.Fatalf("missing deployment should be unhealthy: %+v", status.Model)
	}
	if status.Overall {
		t.Fatal("overall should fail without a model")
	}
}

func TestSystemStatusQuietFeeds(t *testing.T) {
	store := &fakeTickStore{counts: map[string]int{}}
	ms := &fakeModelStore{dep: &models.ModelDeployment{
		Version:    "linear-v1",
		DeployedAt: time.Now(),
		Status:     "active",
	}}

	status := testStatus(t, store, ms).SystemStatus(context.Background())
	if status.DataFeeds.Healthy {
		t.Fatal("no tick counts should report unhealthy feeds")
	}
}

func TestSystemStatusStoreErrorDegrades(t *testing.T) {
	store := &fakeTickStore{err: errors.New("clickhouse down")}
	ms := &fakeModelStore{dep: &models.ModelDeployment{
		Version:    "linear-v1",
		DeployedAt: time.Now(),
		Status:     "active",
	}}

	status := testStatus(t, store, ms).SystemStatus(context.Background())
	if status.DataFeeds.Healthy || status.Overall {
		t.Fatalf("store failure should degrade feeds, not panic: %+v", status)
	}
}
