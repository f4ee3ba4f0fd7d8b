package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ortho-scan/internal/domain/entity"
	"ortho-scan/internal/infrastructure/storage"
)

func TestSessionService_BeginScanAndCancel(t *testing.T) {
	svc := NewSessionService(storage.NewMemorySessionRepository())
	ctx := context.Background()

	session, err := svc.BeginScan(ctx, "1", 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, session.State)

	session, err = svc.Cancel(ctx, "1", 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, session.State)
}

func TestSessionService_SavePatientAndClear(t *testing.T) {
	svc := NewSessionService(storage.NewMemorySessionRepository())
	ctx := context.Background()

	_, err := svc.SavePatient(ctx, "2", 20, entity.NewPatient("Bob", "51", "M", "PT0001"))
	require.NoError(t, err)

	session, err := svc.Get(ctx, "2", 20)
	require.NoError(t, err)
	require.Equal(t, "PT0001", session.Patient.PatientID)

	session, err = svc.Clear(ctx, "2", 20)
	require.NoError(t, err)
	require.Nil(t, session.Patient)
}

func TestSessionService_ClearStartsFreshSession(t *testing.T) {
	svc := NewSessionService(storage.NewMemorySessionRepository())
	ctx := context.Background()

	_, err := svc.Update(ctx, "3", 30, func(session *entity.Session) error {
		session.Patient = entity.NewPatient("Ann", "40", "F", "")
		session.AddScan(entity.ScanResult{ID: "a"})
		session.LastReport = "report.pdf"
		session.SetState(entity.StateAwaitingPhoto)
		return nil
	})
	require.NoError(t, err)

	session, err := svc.Clear(ctx, "3", 30)
	require.NoError(t, err)
	require.Equal(t, "3", session.ID)
	require.Equal(t, int64(30), session.ChatID)
	require.Equal(t, entity.StateMainMenu, session.State)
	require.Nil(t, session.Patient)
	require.Empty(t, session.Scans)
	require.Empty(t, session.LastReport)
}

func TestSessionService_UpdateErrorSkipsSave(t *testing.T) {
	svc := NewSessionService(storage.NewMemorySessionRepository())
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := svc.Update(ctx, "4", 0, func(session *entity.Session) error {
		session.Patient = entity.NewPatient("Ann", "40", "F", "")
		return boom
	})
	require.ErrorIs(t, err, boom)

	session, err := svc.Get(ctx, "4", 0)
	require.NoError(t, err)
	require.Nil(t, session.Patient)
}

func TestSessionService_UpdateSerializesWriters(t *testing.T) {
	svc := NewSessionService(storage.NewMemorySessionRepository())
	ctx := context.Background()

	const writers = 20
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Update(ctx, "5", 0, func(session *entity.Session) error {
				session.AddScan(entity.ScanResult{ID: fmt.Sprintf("scan-%d", i)})
				return nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	session, err := svc.Get(ctx, "5", 0)
	require.NoError(t, err)
	require.Len(t, session.Scans, writers)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Empty(t, svc.locks)
}
