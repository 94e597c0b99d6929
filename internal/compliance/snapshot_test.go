package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	bgservice "provenant/internal/breakglass/service"
	bgmemory "provenant/internal/breakglass/store/memory"
	enrollmentmemory "provenant/internal/enrollment/store/memory"
	"provenant/internal/ledger/models"
	"provenant/internal/ledger/schema"
	ledgerservice "provenant/internal/ledger/service"
	ledgermemory "provenant/internal/ledger/store/memory"
	"provenant/pkg/domain"
)

func TestRunDuringAppendsSeesCommittedUnitsOnly(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	access := bgmemory.New()
	ledger := ledgermemory.New(ledgermemory.WithAccessSink(access))
	guard, err := bgservice.New(access, bgservice.WithLogger(logger))
	require.NoError(t, err)
	service, err := ledgerservice.New(ledger, schema.Default(), enrollmentmemory.New(), guard,
		ledgerservice.WithLogger(logger))
	require.NoError(t, err)
	auditor, err := New(ledger, access, WithLogger(logger))
	require.NoError(t, err)

	const appends = 1500
	var wg sync.WaitGroup
	done := make(chan struct{})
	appendErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := range appends {
			data, _ := json.Marshal(map[string]string{"text": fmt.Sprintf("entry %d", i)})
			_, err := service.Append(ctx, models.Candidate{
				RecordID:    uuid.New(),
				SubjectID:   "subject-1",
				PartitionID: "site-1",
				Operation:   models.Operation{Action: models.ActionCreate, Origin: domain.RoleReviewer},
				Payload:     models.Payload{Kind: "note", Version: "1.0", Data: data},
				ActorID:     "reviewer-1",
				ActorRole:   domain.RoleReviewer,
				ClientTime:  time.Now().Add(-time.Second),
				Reason:      "source data verification",
				Provenance:  models.Provenance{DeviceID: "device-1", IPAddress: "10.0.0.5", SessionID: "sess-1"},
			})
			if err != nil {
				appendErr <- err
				return
			}
		}
	}()

	runs := 0
	for running := true; running; runs++ {
		select {
		case <-done:
			running = false
		default:
		}
		report, err := auditor.Run(ctx)
		require.NoError(t, err)
		for _, f := range report.Findings {
			require.Falsef(t, f.Fatal, "run %d over %d events: %s: %s", runs, report.Events, f.CheckName, f.Details)
		}
	}
	wg.Wait()
	select {
	case err := <-appendErr:
		require.NoError(t, err)
	default:
	}

	report, err := auditor.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, appends, report.Events)
	require.Equal(t, appends, report.Records)
	require.False(t, report.Summary.Fatal)
}
