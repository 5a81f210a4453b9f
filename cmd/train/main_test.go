package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"aq-backend/internal/ml"
	"aq-backend/internal/models"
	"aq-backend/pkg/config"
)

func writeLog(t *testing.T, dir string, rows int) string {
	t.Helper()
	rng := rand.New(rand.NewSource(3))
	var b strings.Builder
	b.WriteString("iso_time,temp_c,hum_pct,mq2,mq135\n")
	for i := 0; i < rows; i++ {
		level := rng.Float64() * 800
		fmt.Fprintf(&b, "2026-01-01T00:%02d:00,%.1f,%.1f,%.0f,%.0f\n",
			i%60, 21+rng.NormFloat64(), 45+rng.NormFloat64()*3, 150+level, 120+0.9*level)
	}
	b.WriteString("2026-01-01T01:00:00,21.0,45.0,n/a,300\n")

	path := filepath.Join(dir, "sensor_log.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(dir string) *config.Config {
	cfg := config.Defaults()
	cfg.TrainSource = "csv"
	cfg.TrainCSVPath = filepath.Join(dir, "sensor_log.csv")
	cfg.ModelPath = filepath.Join(dir, "model", "aq_model.json")
	return cfg
}

func TestRunFromCSV(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, 240)
	cfg := testConfig(dir)

	var out bytes.Buffer
	if err := run(context.Background(), cfg, zap.NewNop(), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, want := range []string{"Rows: 240", "MQ2 thresholds:", "Confusion matrix", "precision", "Model saved to"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
	if _, err := ml.LoadPipeline(cfg.ModelPath); err != nil {
		t.Errorf("saved model does not load: %v", err)
	}
}

func TestRunMissingColumn(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	if err := os.WriteFile(cfg.TrainCSVPath, []byte("temp_c,hum_pct,mq2\n20,40,100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), cfg, zap.NewNop(), &bytes.Buffer{})
	if code := exitCode(err); code != exitData {
		t.Errorf("exit code = %d (err %v), want %d", code, err, exitData)
	}
	if _, statErr := os.Stat(cfg.ModelPath); !os.IsNotExist(statErr) {
		t.Error("model written despite schema error")
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{&models.SchemaError{Column: "mq2", Missing: true}, exitData},
		{fmt.Errorf("load: %w", &ml.InsufficientDataError{Class: "Good", Count: 1, Required: 2}), exitData},
		{errors.New("disk full"), exitError},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Errorf("exitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
