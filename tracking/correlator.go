package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sitelens/api/metrics"
	"sitelens/api/models"
	"sitelens/api/store"
)

// Outcome is the result of tracking one signal.
type Outcome struct {
	State      models.SessionState
	PageViewID string
	// Duplicate is set when an exit named a session that was already closed;
	// nothing was written.
	Duplicate bool
}

// Correlator links exits to the entries that opened them. It holds no
// session state: the entry's id is handed to the probe as the correlation
// token and presented back on exit.
type Correlator struct {
	store store.PageViewStore
	newID func() string
	now   func() time.Time
}

func NewCorrelator(s store.PageViewStore) *Correlator {
	return &Correlator{
		store: s,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (c *Correlator) Track(ctx context.Context, ev *Event) (Outcome, error) {
	if ev.Type == models.PageViewExit {
		return c.trackExit(ctx, ev)
	}
	return c.trackEntry(ctx, ev)
}

// trackEntry opens a new session. Concurrent entries from one client are
// independent sessions.
func (c *Correlator) trackEntry(ctx context.Context, ev *Event) (Outcome, error) {
	now := c.now()
	pv := ev.View
	pv.ID = c.newID()
	pv.Type = models.PageViewEntry
	if pv.EntryTime == nil {
		pv.EntryTime = &now
	}
	pv.ExitTime = nil
	pv.ActiveTime = nil
	pv.ServerTimestamp = now
	pv.CreatedAt = now
	pv.UpdatedAt = now

	if err := c.store.Create(ctx, &pv); err != nil {
		return Outcome{}, models.ErrStore("Failed to track entry", err)
	}

	metrics.RecordTracked(string(models.PageViewEntry), string(models.SessionOpen))
	log.Ctx(ctx).Debug().Str("page_view_id", pv.ID).Str("website_id", pv.WebsiteID).Msg("entry tracked")
	return Outcome{State: models.SessionOpen, PageViewID: pv.ID}, nil
}

// trackExit closes the session named by the token, or records a standalone
// orphan exit when the token is missing or does not resolve.
func (c *Correlator) trackExit(ctx context.Context, ev *Event) (Outcome, error) {
	now := c.now()
	exit := models.ExitFields{ExitTime: now, ActiveTime: ev.View.ActiveTime}
	if ev.View.ExitTime != nil {
		exit.ExitTime = *ev.View.ExitTime
	}

	if ev.Token != "" {
		if _, err := uuid.Parse(ev.Token); err != nil {
			log.Ctx(ctx).Debug().Str("token", ev.Token).Msg("exit token is not a page view id")
		} else {
			err := c.store.CloseOpen(ctx, ev.Token, ev.View.WebsiteID, exit)
			switch {
			case err == nil:
				metrics.RecordTracked(string(models.PageViewExit), string(models.SessionClosed))
				log.Ctx(ctx).Debug().Str("page_view_id", ev.Token).Msg("exit tracked")
				return Outcome{State: models.SessionClosed, PageViewID: ev.Token}, nil
			case errors.Is(err, store.ErrAlreadyClosed):
				metrics.RecordTracked(string(models.PageViewExit), "duplicate")
				log.Ctx(ctx).Debug().Str("page_view_id", ev.Token).Msg("ignoring exit for closed page view")
				return Outcome{State: models.SessionClosed, PageViewID: ev.Token, Duplicate: true}, nil
			case errors.Is(err, store.ErrPageViewNotFound):
				log.Ctx(ctx).Debug().Str("page_view_id", ev.Token).Msg("exit token did not resolve")
			default:
				log.Ctx(ctx).Warn().Err(err).Str("page_view_id", ev.Token).Msg("failed to close page view, recording orphan exit")
			}
		}
	}

	pv := ev.View
	pv.ID = c.newID()
	pv.Type = models.PageViewExit
	pv.EntryTime = nil
	pv.ExitTime = &exit.ExitTime
	pv.ActiveTime = exit.ActiveTime
	pv.ServerTimestamp = now
	pv.CreatedAt = now
	pv.UpdatedAt = now

	if err := c.store.Create(ctx, &pv); err != nil {
		return Outcome{}, models.ErrStore("Failed to track exit", err)
	}

	metrics.RecordTracked(string(models.PageViewExit), string(models.SessionOrphanClosed))
	log.Ctx(ctx).Debug().Str("page_view_id", pv.ID).Msg("orphan exit tracked")
	return Outcome{State: models.SessionOrphanClosed, PageViewID: pv.ID}, nil
}
