package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/service"
)

func TestRunService_CreateRun_PriorityPropagates(t *testing.T) {
	ctx := context.Background()
	id := uuid.MustParse("66666666-6666-6666-6666-666666666666")

	repo := &fakeRunRepo{createID: id}
	queue := &fakeQueue{}
	svc := service.NewRunService(repo, queue)

	_, err := svc.CreateRun(ctx, service.CreateRunRequest{
		Kind:     entity.RunForecast,
		Priority: 2,
		Input:    json.RawMessage(`{"horizon_days":14}`),
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if repo.lastPriority != 2 {
		t.Fatalf("expected repo priority=2, got %d", repo.lastPriority)
	}
	if len(queue.enqueuedPriorities) != 1 || queue.enqueuedPriorities[0] != 2 {
		t.Fatalf("expected enqueue priority=2, got %#v", queue.enqueuedPriorities)
	}
}

func TestRunService_CreateRun_PriorityClampedToNormal(t *testing.T) {
	ctx := context.Background()
	id := uuid.MustParse("77777777-7777-7777-7777-777777777777")

	repo := &fakeRunRepo{createID: id}
	queue := &fakeQueue{}
	svc := service.NewRunService(repo, queue)

	_, err := svc.CreateRun(ctx, service.CreateRunRequest{
		Kind:     entity.RunMonitor,
		Priority: 999, // invalid
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if repo.lastPriority != 1 {
		t.Fatalf("expected repo priority=1 (clamped), got %d", repo.lastPriority)
	}
	if string(repo.lastInput) != `{}` {
		t.Fatalf("expected empty input stored as {}, got %s", repo.lastInput)
	}
}

func TestRunService_CreateRun_RejectsBadRequests(t *testing.T) {
	cases := map[string]service.CreateRunRequest{
		"unknown kind":     {Kind: "reboot"},
		"missing kind":     {},
		"invalid json":     {Kind: entity.RunForecast, Input: json.RawMessage(`{nope`)},
		"horizon too long": {Kind: entity.RunForecast, Input: json.RawMessage(`{"horizon_days":9999}`)},
		"negative horizon": {Kind: entity.RunForecast, Input: json.RawMessage(`{"horizon_days":-3}`)},
		"horizon not int":  {Kind: entity.RunForecast, Input: json.RawMessage(`{"horizon_days":"soon"}`)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &fakeRunRepo{createID: uuid.New()}
			queue := &fakeQueue{}

			_, err := service.NewRunService(repo, queue).CreateRun(context.Background(), req)
			if !errors.Is(err, service.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if repo.createCalled != 0 || len(queue.enqueuedIDs) != 0 {
				t.Fatalf("nothing must be stored or enqueued")
			}
		})
	}
}

func TestRunService_CreateRun_EnqueueFailure(t *testing.T) {
	repo := &fakeRunRepo{createID: uuid.New()}
	queue := &fakeQueue{enqueueErr: errors.New("redis down")}

	_, err := service.NewRunService(repo, queue).CreateRun(context.Background(), service.CreateRunRequest{Kind: entity.RunOptimize})
	if err == nil {
		t.Fatalf("expected error")
	}
	if repo.createCalled != 1 {
		t.Fatalf("expected run row created once, got %d", repo.createCalled)
	}
}

func TestRunService_CreateRun_ForecastWithoutHorizonUsesDefault(t *testing.T) {
	repo := &fakeRunRepo{createID: uuid.New()}
	queue := &fakeQueue{}

	_, err := service.NewRunService(repo, queue).CreateRun(context.Background(), service.CreateRunRequest{
		Kind:  entity.RunForecast,
		Input: json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.createCalled != 1 || len(queue.enqueuedIDs) != 1 {
		t.Fatalf("expected the run to be stored and enqueued once")
	}
}
