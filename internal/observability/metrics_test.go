package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/wbkim0504/pms-emul/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordAdmission(true)
	RecordAdmission(false)
	RecordDisconnect()
	RecordBytesReceived(30)
	RecordFrame()
	RecordOverflow()
	RecordControl("select", "SPU")
	RecordDecode("SPU", 2, nil)
	RecordDecode("INV", 0, errors.New("truncated"))
	RecordBroadcastFailure()
	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)
}

func TestRecordDecodeCountsErrors(t *testing.T) {
	testlog.Start(t)
	before := testutil.ToFloat64(decodeErrors)
	RecordDecode("ESS", 0, errors.New("truncated"))
	RecordDecode("ESS", 1, nil)
	if got := testutil.ToFloat64(decodeErrors); got != before+1 {
		t.Fatalf("decode errors = %v, want %v", got, before+1)
	}
}
