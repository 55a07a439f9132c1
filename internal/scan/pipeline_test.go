package scan

import "testing"

func TestStageOrderIsComplete(t *testing.T) {
	t.Parallel()

	// Every stage except the reporter must name a successor, and following
	// the chain from the analyzer must visit all five stages exactly once.
	seen := map[string]bool{}
	q := QueueAnalyzer
	for {
		if seen[q] {
			t.Fatalf("stage %q visited twice", q)
		}
		seen[q] = true
		next, ok := stageOrder[q]
		if !ok {
			break
		}
		q = next
	}
	if q != QueueReporter {
		t.Errorf("chain ends at %q, want %q", q, QueueReporter)
	}
	if len(seen) != 5 {
		t.Errorf("chain visited %d stages, want 5", len(seen))
	}
}

func TestStageName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		QueueAnalyzer:  "analyzer",
		QueueScanner:   "scanner",
		QueueAdvisor:   "advisor",
		QueueEvaluator: "evaluator",
		QueueReporter:  "reporter",
		"other":        "other",
	}
	for queue, want := range cases {
		if got := StageName(queue); got != want {
			t.Errorf("StageName(%q) = %q, want %q", queue, got, want)
		}
	}
}
