package journey

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestJourney_NilIsSafe(t *testing.T) {
	var j *Journey
	j.AddStep("literal", false, 0, time.Millisecond, "")
	j.SetNormalized("x")
	j.Finish("noop", "", true)
	if got := j.Snapshot(); got != nil {
		t.Fatalf("expected nil steps, got %v", got)
	}
}

func TestLogger_WritesOneLinePerJourney(t *testing.T) {
	dir, err := os.MkdirTemp("", "deskpilot-journey-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "nested", "journey.jsonl")
	logger := NewLogger(path)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j := New("id", "please close tab")
			j.SetNormalized("close tab")
			j.AddStep("directive", false, 0, time.Microsecond, "")
			j.AddStep("rule", true, 1, time.Microsecond, "close-tab")
			j.Finish("close_tab", "Closed tab", true)
			if err := logger.Write(j); err != nil {
				t.Errorf("write failed: %v", err)
			}
		}()
	}
	wg.Wait()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var j Journey
		if err := json.Unmarshal(scanner.Bytes(), &j); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		if len(j.Steps) != 2 || j.Normalized != "close tab" {
			t.Errorf("unexpected journey: %+v", &j)
		}
		lines++
	}
	if lines != 10 {
		t.Errorf("expected 10 lines, got %d", lines)
	}
}
