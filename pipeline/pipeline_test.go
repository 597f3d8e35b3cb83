package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testStages returns a short chain so runs finish quickly.
func testStages() []Stage {
	return []Stage{
		{Name: "scan", Delay: time.Millisecond},
		{Name: "convert", Delay: time.Millisecond},
		{Name: "index", Delay: time.Millisecond},
	}
}

func TestParseStages(t *testing.T) {
	t.Run("valid input", func(t *testing.T) {
		stages, err := ParseStages("scan:200ms,convert:500ms,index:100ms")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stages) != 3 {
			t.Fatalf("expected 3 stages, got %d", len(stages))
		}

		want := []Stage{
			{Name: "scan", Delay: 200 * time.Millisecond},
			{Name: "convert", Delay: 500 * time.Millisecond},
			{Name: "index", Delay: 100 * time.Millisecond},
		}
		for i, stage := range stages {
			if stage.Name != want[i].Name {
				t.Errorf("stage %d: expected name %s, got %s", i, want[i].Name, stage.Name)
			}
			if stage.Delay != want[i].Delay {
				t.Errorf("stage %d: expected delay %v, got %v", i, want[i].Delay, stage.Delay)
			}
		}
	})

	t.Run("whitespace is tolerated", func(t *testing.T) {
		stages, err := ParseStages(" scan : 200ms , index:50ms ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stages) != 2 {
			t.Fatalf("expected 2 stages, got %d", len(stages))
		}
		if stages[0].Name != "scan" || stages[0].Delay != 200*time.Millisecond {
			t.Errorf("unexpected first stage: %+v", stages[0])
		}
	})

	t.Run("empty input", func(t *testing.T) {
		for _, input := range []string{"", "   ", ",,"} {
			stages, err := ParseStages(input)
			if err != nil {
				t.Errorf("input %q: unexpected error: %v", input, err)
			}
			if stages != nil {
				t.Errorf("input %q: expected nil stages, got %v", input, stages)
			}
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{"missing duration", "scan"},
			{"missing name", ":200ms"},
			{"bad duration", "scan:fast"},
			{"negative duration", "scan:-200ms"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := ParseStages(tt.input); err == nil {
					t.Errorf("expected error for %q, got none", tt.input)
				}
			})
		}
	})
}

func TestDefaultStages(t *testing.T) {
	stages := DefaultStages()
	if len(stages) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(stages))
	}

	want := []string{"scan", "ocr", "convert", "index"}
	for i, stage := range stages {
		if stage.Name != want[i] {
			t.Errorf("stage %d: expected %s, got %s", i, want[i], stage.Name)
		}
		if stage.Delay <= 0 {
			t.Errorf("stage %s: expected positive delay, got %v", stage.Name, stage.Delay)
		}
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("all stages complete", func(t *testing.T) {
		runner := NewRunner(testStages())

		results, err := runner.Run(ctx, "job-1", "report.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}

		want := []string{"scan", "convert", "index"}
		for i, res := range results {
			if res.Stage != want[i] {
				t.Errorf("result %d: expected stage %s, got %s", i, want[i], res.Stage)
			}
			if res.Err != nil {
				t.Errorf("stage %s: unexpected error: %v", res.Stage, res.Err)
			}
			if res.Started.IsZero() {
				t.Errorf("stage %s: expected a start time", res.Stage)
			}
			if res.Duration <= 0 {
				t.Errorf("stage %s: expected positive duration, got %v", res.Stage, res.Duration)
			}
		}
	})

	t.Run("empty stage list selects defaults", func(t *testing.T) {
		runner := NewRunner(nil)
		stages := runner.Stages()
		if len(stages) != len(DefaultStages()) {
			t.Errorf("expected %d default stages, got %d", len(DefaultStages()), len(stages))
		}
	})

	t.Run("jitter does not break a run", func(t *testing.T) {
		runner := NewRunner([]Stage{
			{Name: "scan", Delay: time.Millisecond, Jitter: time.Millisecond},
		})
		results, err := runner.Run(ctx, "job-2", "scan.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
	})
}

func TestRunFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	runner := NewRunner(testStages(), WithFailure(func(stage string) error {
		if stage == "convert" {
			return boom
		}
		return nil
	}))

	results, err := runner.Run(ctx, "job-1", "report.pdf")
	if err == nil {
		t.Fatal("expected an error, got none")
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected error to wrap the stage failure, got %v", err)
	}
	if got := err.Error(); got != "stage convert: boom" {
		t.Errorf("expected failed stage in the message, got %q", got)
	}

	// The run stops at the failed stage.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("stage scan: unexpected error: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("expected convert result to carry the failure, got %v", results[1].Err)
	}
}

func TestRunCancellation(t *testing.T) {
	t.Run("cancelled mid-stage", func(t *testing.T) {
		runner := NewRunner([]Stage{
			{Name: "scan", Delay: time.Millisecond},
			{Name: "convert", Delay: time.Second},
		})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		results, err := runner.Run(ctx, "job-1", "report.pdf")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if !errors.Is(results[1].Err, context.Canceled) {
			t.Errorf("expected cancelled stage result, got %v", results[1].Err)
		}
	})

	t.Run("cancelled before the run", func(t *testing.T) {
		runner := NewRunner(testStages())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := runner.Run(ctx, "job-2", "report.pdf")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRunConcurrent(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(testStages())

	done := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := runner.Run(ctx, "job", "report.pdf")
			done <- err
		}()
	}
	for i := 0; i < 5; i++ {
		if err := <-done; err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
}
