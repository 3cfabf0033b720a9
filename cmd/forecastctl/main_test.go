package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cellarpos/backend/internal/domain"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CONFIG_FILE", "")

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("forecastctl %v failed: %v (stderr: %s)", args, err, errOut.String())
	}
	return out.String()
}

func TestRunPrintsForecastJSON(t *testing.T) {
	out := runCLI(t, "run", "--months", "4", "--history", "6", "--seed", "7")

	var resp domain.ForecastResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if resp.Months != 4 || len(resp.Forecasts) != 4 {
		t.Fatalf("expected 4 forecast months, got %d", len(resp.Forecasts))
	}
	if len(resp.History) != 6 {
		t.Fatalf("expected 6 history months, got %d", len(resp.History))
	}
}

func TestRunWithSeedIsReproducible(t *testing.T) {
	var first, second domain.ForecastResponse
	if err := json.Unmarshal([]byte(runCLI(t, "run", "--seed", "42")), &first); err != nil {
		t.Fatalf("decode first run: %v", err)
	}
	if err := json.Unmarshal([]byte(runCLI(t, "run", "--seed", "42")), &second); err != nil {
		t.Fatalf("decode second run: %v", err)
	}
	for i := range first.Forecasts {
		if first.Forecasts[i].Expenses != second.Forecasts[i].Expenses {
			t.Fatalf("month %s differs between seeded runs", first.Forecasts[i].Month)
		}
	}
}

func TestRunRejectsBlankOrganization(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--org", " "})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected blank organization to fail")
	}
}

func TestHistoryOnFreshDemoStoreIsEmpty(t *testing.T) {
	out := runCLI(t, "history", "--limit", "5")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "ID") {
		t.Fatalf("expected header only, got %q", out)
	}
}

func TestPrintHistoryFormatsRows(t *testing.T) {
	var buf bytes.Buffer
	err := printHistory(&buf, []domain.BudgetForecastRecord{{
		ID:               "bf-1",
		CreatedAt:        time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC),
		ForecastMonths:   3,
		HistoryMonths:    6,
		ConfidenceScore:  81.25,
		AvgExpenseGrowth: 2.5,
		CreatedBy:        "manager",
	}})
	if err != nil {
		t.Fatalf("print history: %v", err)
	}
	if !strings.Contains(buf.String(), "bf-1") || !strings.Contains(buf.String(), "81.25") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
