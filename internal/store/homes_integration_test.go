package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"buildwise/api/internal/home"
)

func TestConcurrentTaskUpdatesDoNotLoseWrites(t *testing.T) {
	db := openTestDB(t)
	s := NewPostgresStore(db)
	ctx := context.Background()

	h := home.New("Concurrent Home", "", "", nil)
	trade := home.NewTrade("Framing", []home.PhaseKey{home.PhaseExterior}, home.Vendor{}, decimal.Zero, "")
	for i := 0; i < 8; i++ {
		trade.Tasks = append(trade.Tasks, home.NewTask("task", "", home.PhaseExterior, nil, "", nil))
	}
	h.Trades = append(h.Trades, trade)
	created, err := s.CreateHome(ctx, h)
	if err != nil {
		t.Fatalf("create home: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(trade.Tasks))
	for _, task := range trade.Tasks {
		wg.Add(1)
		go func(taskID string) {
			defer wg.Done()
			_, err := s.MutateHome(ctx, created.ID, func(current *home.Home) ([]home.Patch, error) {
				done := home.TaskDone
				_, patches, err := current.UpdateTask(trade.ID, taskID, home.TaskUpdate{Status: &done}, home.Actor{Email: "crew@example.com"}, time.Now())
				return patches, err
			})
			errs <- err
		}(task.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
	}

	final, err := s.GetHome(ctx, created.ID)
	if err != nil {
		t.Fatalf("get home: %v", err)
	}
	for _, task := range final.Trades[0].Tasks {
		if task.Status != home.TaskDone || task.CompletedAt == nil {
			t.Fatalf("lost update on task %s: %+v", task.ID, task)
		}
	}
	if final.Revision != created.Revision+int64(len(trade.Tasks)) {
		t.Fatalf("expected one revision per write, got %d", final.Revision)
	}

	mine, err := s.ListHomesForEmail(ctx, "nobody@example.com", 10)
	if err != nil {
		t.Fatalf("list homes for email: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected no homes for stranger, got %d", len(mine))
	}
}
