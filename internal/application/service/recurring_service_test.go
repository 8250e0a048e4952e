package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kaiwen/taskline/internal/domain/entity"
)

func TestNextDueDate(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	tests := []struct {
		name string
		prev time.Time
		rec  entity.Recurrence
		want time.Time
	}{
		{
			name: "weekly adds seven days",
			prev: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			rec:  entity.RecurrenceWeekly,
			want: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "weekly across month boundary",
			prev: time.Date(2026, 1, 28, 18, 30, 0, 0, time.UTC),
			rec:  entity.RecurrenceWeekly,
			want: time.Date(2026, 2, 4, 18, 30, 0, 0, time.UTC),
		},
		{
			name: "monthly mid-month keeps the day",
			prev: time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC),
			rec:  entity.RecurrenceMonthly,
			want: time.Date(2026, 5, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly clamps Jan 31 to Feb 28",
			prev: time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC),
			rec:  entity.RecurrenceMonthly,
			want: time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly clamps Jan 31 to Feb 29 in leap years",
			prev: time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
			rec:  entity.RecurrenceMonthly,
			want: time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly Dec 31 wraps the year",
			prev: time.Date(2026, 12, 31, 9, 0, 0, 0, time.UTC),
			rec:  entity.RecurrenceMonthly,
			want: time.Date(2027, 1, 31, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "quarterly adds three months",
			prev: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			rec:  entity.RecurrenceQuarterly,
			want: time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "quarterly clamps Nov 30 to Feb 28",
			prev: time.Date(2025, 11, 30, 9, 0, 0, 0, time.UTC),
			rec:  entity.RecurrenceQuarterly,
			want: time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "preserves wall clock in the template timezone",
			prev: time.Date(2026, 1, 31, 23, 45, 0, 0, tokyo),
			rec:  entity.RecurrenceMonthly,
			want: time.Date(2026, 2, 28, 23, 45, 0, 0, tokyo),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.prev, tt.rec)
			if !got.Equal(tt.want) {
				t.Errorf("NextDueDate(%v, %s) = %v, want %v", tt.prev, tt.rec, got, tt.want)
			}
		})
	}
}

func TestGenerateDueInstances(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	newTemplate := func(id string, nextRun time.Time) *entity.RecurringTaskTemplate {
		return &entity.RecurringTaskTemplate{
			ID:                  id,
			GroupID:             "g1",
			Title:               "Weekly stock take " + id,
			Recurrence:          entity.RecurrenceWeekly,
			NextRunAt:           nextRun,
			TotalInstances:      4,
			AssigneeIDs:         []string{"bob"},
			CreatedByLineUserID: "alice",
			Active:              true,
		}
	}

	t.Run("spawns and advances", func(t *testing.T) {
		tpl := newTemplate("tpl1", now.Add(-time.Minute))
		var updated *entity.RecurringTaskTemplate
		templateRepo := &mockTemplateRepo{
			listDueFunc: func(ctx context.Context, at time.Time) ([]*entity.RecurringTaskTemplate, error) {
				return []*entity.RecurringTaskTemplate{tpl}, nil
			},
			updateFunc: func(ctx context.Context, t *entity.RecurringTaskTemplate) error {
				updated = t
				return nil
			},
		}

		var gotSpec CreateTaskSpec
		taskService := &mockTaskService{
			createTaskFunc: func(ctx context.Context, spec CreateTaskSpec) (*entity.Task, error) {
				gotSpec = spec
				return &entity.Task{ID: "spawned"}, nil
			},
		}

		svc := NewRecurringService(templateRepo, taskService, &mockLogger{})
		spawned, err := svc.GenerateDueInstances(context.Background(), now)
		if err != nil {
			t.Fatalf("GenerateDueInstances() error = %v", err)
		}
		if spawned != 1 {
			t.Fatalf("spawned = %d, want 1", spawned)
		}

		// The instance is due at the advanced run time, one cadence ahead.
		wantDue := now.Add(-time.Minute).AddDate(0, 0, 7)
		if !gotSpec.DueTime.Equal(wantDue) {
			t.Errorf("spawned DueTime = %v, want %v", gotSpec.DueTime, wantDue)
		}
		if gotSpec.RecurringTaskID != "tpl1" || gotSpec.RecurringInstance != 5 {
			t.Errorf("recurring linkage = (%s, %d), want (tpl1, 5)", gotSpec.RecurringTaskID, gotSpec.RecurringInstance)
		}

		if updated == nil {
			t.Fatal("template was not advanced")
		}
		if updated.TotalInstances != 5 {
			t.Errorf("TotalInstances = %d, want 5", updated.TotalInstances)
		}
		if !updated.NextRunAt.Equal(wantDue) {
			t.Errorf("NextRunAt = %v, want %v", updated.NextRunAt, wantDue)
		}
		if updated.LastRunAt == nil || !updated.LastRunAt.Equal(now) {
			t.Errorf("LastRunAt = %v, want %v", updated.LastRunAt, now)
		}
	})

	t.Run("one bad template does not block the rest", func(t *testing.T) {
		bad := newTemplate("bad", now.Add(-time.Minute))
		good := newTemplate("good", now.Add(-time.Minute))
		var advanced []string
		templateRepo := &mockTemplateRepo{
			listDueFunc: func(ctx context.Context, at time.Time) ([]*entity.RecurringTaskTemplate, error) {
				return []*entity.RecurringTaskTemplate{bad, good}, nil
			},
			updateFunc: func(ctx context.Context, t *entity.RecurringTaskTemplate) error {
				advanced = append(advanced, t.ID)
				return nil
			},
		}

		taskService := &mockTaskService{
			createTaskFunc: func(ctx context.Context, spec CreateTaskSpec) (*entity.Task, error) {
				if spec.RecurringTaskID == "bad" {
					return nil, errors.New("boom")
				}
				return &entity.Task{ID: "spawned"}, nil
			},
		}

		svc := NewRecurringService(templateRepo, taskService, &mockLogger{})
		spawned, err := svc.GenerateDueInstances(context.Background(), now)
		if err != nil {
			t.Fatalf("GenerateDueInstances() error = %v", err)
		}
		if spawned != 1 {
			t.Errorf("spawned = %d, want 1", spawned)
		}
		if len(advanced) != 1 || advanced[0] != "good" {
			t.Errorf("advanced templates = %v, want [good]", advanced)
		}
		if bad.TotalInstances != 4 {
			t.Errorf("failed template TotalInstances = %d, want unchanged 4", bad.TotalInstances)
		}
	})

	t.Run("list failure surfaces", func(t *testing.T) {
		templateRepo := &mockTemplateRepo{
			listDueFunc: func(ctx context.Context, at time.Time) ([]*entity.RecurringTaskTemplate, error) {
				return nil, errors.New("db gone")
			},
		}
		svc := NewRecurringService(templateRepo, &mockTaskService{}, &mockLogger{})
		if _, err := svc.GenerateDueInstances(context.Background(), now); err == nil {
			t.Error("GenerateDueInstances() error = nil, want error")
		}
	})
}
