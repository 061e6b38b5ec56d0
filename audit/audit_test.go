package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrailCollectorDefaultIsInert(t *testing.T) {
	RecordEngineSync("x", 1, "wf-1", "created")
	RecordPolicyDenial("x", 1, 2, "https://y.test", "not in allow-list")
	StopTrailCollector()
}

func TestLogFileTrailCollector(t *testing.T) {
	file := filepath.Join(t.TempDir(), "audit.log")
	require.NoError(t, InitTrailCollector(TrailCollectorConfig{
		FileName:      file,
		CollectorType: LOG_FILE_TRAIL_COLLECTOR,
	}))
	defer StopTrailCollector()

	RecordPolicyDenial("Onboarding", 1, 2, "https://evil.test/x", "not in allow-list")
	RecordExecutionStarted("Onboarding", 1, "exec-1", "manual")
	RecordExecutionFinished("Onboarding", 1, "exec-1", "completed", "")
	RecordEngineSync("Onboarding", 1, "wf-9", "created")
	RecordCvParse("Onboarding", 1, 3, "https://cdn.test/cv.pdf", "parsed")

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(file)
		if err != nil {
			return false
		}
		trail := string(data)
		for _, want := range []string{
			"policy-denial", "https://evil.test/x",
			"execution-started", "execution-finished", "exec-1",
			"engine-sync", "wf-9",
			"cv-parse", "parsed",
		} {
			if !strings.Contains(trail, want) {
				return false
			}
		}
		return true
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNoopTrailCollector(t *testing.T) {
	require.NoError(t, InitTrailCollector(TrailCollectorConfig{CollectorType: NOOP_TRAIL_COLLECTOR}))
	RecordExecutionStarted("Onboarding", 1, "exec-2", "webhook")
	StopTrailCollector()
}

func TestLogFileTrailCollectorBadPath(t *testing.T) {
	err := InitTrailCollector(TrailCollectorConfig{
		FileName:      filepath.Join(t.TempDir(), "missing", "audit.log"),
		CollectorType: LOG_FILE_TRAIL_COLLECTOR,
	})
	require.Error(t, err)
}
