package handlers

import (
	"context"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/services"
)

// recordAuth adapts a request's auth record to the services.AuthProvider
// contract. RefreshSession re-reads the record from the backend so an
// account deleted or revoked while a dialog sat open is caught at confirm
// time, and the mutation then runs under the re-read identity.
type recordAuth struct {
	app      core.App
	record   *core.Record
	validity time.Duration
}

func newRecordAuth(app core.App, record *core.Record, validity time.Duration) *recordAuth {
	return &recordAuth{
		app:      app,
		record:   record,
		validity: validity,
	}
}

func (a *recordAuth) RefreshSession(ctx context.Context) error {
	if a.record == nil {
		return nil
	}

	fresh, err := a.app.FindRecordById(a.record.Collection(), a.record.Id)
	if err != nil {
		// The account is gone; drop the stale identity.
		a.record = nil
		return err
	}

	a.record = fresh
	return nil
}

func (a *recordAuth) GetSession(ctx context.Context) (*services.Session, error) {
	if a.record == nil {
		return nil, nil
	}

	return &services.Session{
		UserID:    a.record.Id,
		ExpiresAt: time.Now().Add(a.validity),
	}, nil
}
