// Package worker drains one bounded batch of pending trend jobs per
// invocation: claim, fetch from the marketplace, normalize, upsert, finalize
// status. Failures are isolated per job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/Kelokecl/keloke-trends-worker/internal/events"
	"github.com/Kelokecl/keloke-trends-worker/internal/meli"
	"github.com/Kelokecl/keloke-trends-worker/internal/store"
)

// SellerPrefix tags a category_id as a seller-scoped job: "SELLER:123" runs
// the seller items search instead of the category search.
const SellerPrefix = "SELLER:"

const (
	ModeCategory = "category_public"
	ModeSeller   = "seller"
)

// ErrRunInProgress means another invocation holds the run lock for this data
// dir; the caller should come back later rather than double-claim jobs.
var ErrRunInProgress = errors.New("another run is in progress")

type Processor struct {
	DB        *store.DB
	Client    *meli.Client
	Refresher *meli.Refresher
	Hub       *events.Hub
	LockPath  string
}

type RunParams struct {
	SiteID      string
	Batch       int
	Limit       int
	HeaderToken string // bearer from the invocation request, optional
}

// Entry summarizes one processed job. Exactly one of the three shapes is
// populated: success (Items/Mode), marketplace failure (Status/Payload) or
// persistence failure (DBError).
type Entry struct {
	JobID    int64  `json:"job_id"`
	Category string `json:"category"`
	OK       bool   `json:"ok"`
	Items    *int   `json:"items,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Status   *int   `json:"status,omitempty"`
	Payload  string `json:"payload,omitempty"`
	DBError  string `json:"db_error,omitempty"`
}

type Summary struct {
	OK          bool    `json:"ok"`
	RunID       string  `json:"run_id,omitempty"`
	Msg         string  `json:"msg,omitempty"`
	SiteID      string  `json:"site_id"`
	Batch       int     `json:"batch,omitempty"`
	Limit       int     `json:"limit,omitempty"`
	Processed   int     `json:"processed"`
	Inserted    int     `json:"inserted"`
	TokenSource string  `json:"token_source,omitempty"`
	TokenLen    int     `json:"token_len,omitempty"`
	Results     []Entry `json:"results,omitempty"`
}

// tokenState is the in-memory access/refresh pair shared by every job in the
// batch. A mid-batch refresh replaces it in place, so later seller jobs
// reuse the new token without refreshing again.
type tokenState struct {
	access  string
	refresh string
	source  string // "header" | "db"
}

// Run processes one bounded batch and returns the invocation summary. Jobs
// are handled strictly sequentially: they share the mutable token pair and
// the marketplace rate budget.
func (p *Processor) Run(ctx context.Context, params RunParams) (Summary, error) {
	lock := flock.New(p.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("run lock: %w", err)
	}
	if !locked {
		return Summary{}, ErrRunInProgress
	}
	defer func() { _ = lock.Unlock() }()

	jobs, err := store.ClaimBatch(ctx, p.DB.Pool, params.SiteID, params.Batch)
	if err != nil {
		return Summary{}, err
	}
	if len(jobs) == 0 {
		return Summary{
			OK:     true,
			Msg:    "no_jobs",
			SiteID: params.SiteID,
			Batch:  params.Batch,
			Limit:  params.Limit,
		}, nil
	}

	ts, err := p.resolveToken(ctx, params.HeaderToken)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		OK:          true,
		RunID:       uuid.NewString(),
		SiteID:      params.SiteID,
		TokenSource: ts.source,
		TokenLen:    len(ts.access),
	}

	for _, job := range jobs {
		taken, err := store.MarkProcessing(ctx, p.DB.Pool, job.ID, job.Attempts)
		if err != nil {
			return sum, err
		}
		if !taken {
			// another invocation got there first
			log.Printf("[worker] job=%d no longer pending, skipping", job.ID)
			continue
		}
		sum.Processed++

		entry, inserted, err := p.processJob(ctx, job, params.Limit, ts)
		if err != nil {
			// transport-level failure: the invocation aborts, jobs already
			// finalized keep their status
			return sum, err
		}
		sum.Inserted += inserted
		sum.Results = append(sum.Results, entry)
		p.publish(entry)
	}

	if p.Hub != nil {
		p.Hub.Publish(events.Event{Type: "run_done", RunID: sum.RunID, Count: sum.Processed})
	}
	log.Printf("[worker] run=%s site=%s processed=%d inserted=%d", sum.RunID, sum.SiteID, sum.Processed, sum.Inserted)
	return sum, nil
}

// resolveToken picks the access token once per invocation. A caller-supplied
// bearer wins; the stored credential still contributes the refresh token in
// case a mid-batch refresh becomes necessary.
func (p *Processor) resolveToken(ctx context.Context, headerToken string) (*tokenState, error) {
	if headerToken != "" {
		ts := &tokenState{access: headerToken, source: "header"}
		if cred, err := store.LatestCredential(ctx, p.DB.Pool); err == nil {
			ts.refresh = cred.RefreshToken
		}
		return ts, nil
	}

	cred, err := store.LatestCredential(ctx, p.DB.Pool)
	if err != nil {
		return nil, err
	}
	return &tokenState{access: cred.AccessToken, refresh: cred.RefreshToken, source: "db"}, nil
}

func (p *Processor) processJob(ctx context.Context, job store.Job, limit int, ts *tokenState) (Entry, int, error) {
	mode := ModeCategory
	target := p.Client.CategorySearchURL(job.SiteID, job.CategoryID, limit)
	if sellerID, ok := strings.CutPrefix(job.CategoryID, SellerPrefix); ok {
		mode = ModeSeller
		target = p.Client.SellerItemsURL(sellerID, limit)
	}

	res, err := p.Client.FetchPublic(ctx, target)
	if err != nil {
		return Entry{}, 0, err
	}

	if mode == ModeSeller && res.State == meli.StateUnauthorized {
		tok, rerr := p.Refresher.Refresh(ctx, ts.refresh)
		if rerr != nil {
			log.Printf("[worker] job=%d refresh failed: %v", job.ID, rerr)
			return p.failMarketplace(ctx, job, meli.Result{
				State:  res.State,
				Status: res.Status,
				Body:   []byte(rerr.Error()),
			})
		}
		ts.access = tok.AccessToken
		ts.refresh = tok.RefreshToken
		log.Printf("[worker] job=%d refreshed access token, retrying private", job.ID)

		// exactly one retry; a second 401 falls through as a failure
		res, err = p.Client.FetchPrivate(ctx, target, ts.access)
		if err != nil {
			return Entry{}, 0, err
		}
	}

	if res.State != meli.StateOK {
		return p.failMarketplace(ctx, job, res)
	}

	items := meli.ExtractItems(res.Body)
	rows := make([]store.ItemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, store.ItemRow{
			JobID:      job.ID,
			SiteID:     job.SiteID,
			CategoryID: job.CategoryID,
			ItemID:     it.ID,
			Title:      it.Str("title"),
			Permalink:  it.Str("permalink"),
			Price:      it.Num("price"),
			CurrencyID: it.Str("currency_id"),
			SellerID:   it.SellerID(),
			RawPayload: string(it.Raw),
		})
	}

	inserted := 0
	if len(rows) > 0 {
		n, uerr := store.UpsertItems(ctx, p.DB.Pool, rows)
		if uerr != nil {
			if merr := store.MarkError(ctx, p.DB.Pool, job.ID, "db: "+uerr.Error()); merr != nil {
				log.Printf("[worker] job=%d mark error failed: %v", job.ID, merr)
			}
			return Entry{
				JobID:    job.ID,
				Category: job.CategoryID,
				OK:       false,
				DBError:  uerr.Error(),
			}, 0, nil
		}
		inserted = n
	}

	if err := store.MarkDone(ctx, p.DB.Pool, job.ID); err != nil {
		return Entry{}, 0, err
	}
	count := len(rows)
	log.Printf("[worker] job=%d mode=%s items=%d", job.ID, mode, count)
	return Entry{
		JobID:    job.ID,
		Category: job.CategoryID,
		OK:       true,
		Items:    &count,
		Mode:     mode,
	}, inserted, nil
}

// failMarketplace finalizes a job whose marketplace call came back
// non-success: status and raw body land in last_error and the batch entry.
func (p *Processor) failMarketplace(ctx context.Context, job store.Job, res meli.Result) (Entry, int, error) {
	if err := store.MarkError(ctx, p.DB.Pool, job.ID, res.ErrorMessage()); err != nil {
		log.Printf("[worker] job=%d mark error failed: %v", job.ID, err)
	}
	status := res.Status
	return Entry{
		JobID:    job.ID,
		Category: job.CategoryID,
		OK:       false,
		Status:   &status,
		Payload:  string(res.Body),
	}, 0, nil
}

func (p *Processor) publish(e Entry) {
	if p.Hub == nil {
		return
	}
	typ := "job_done"
	if !e.OK {
		typ = "job_error"
	}
	p.Hub.Publish(events.Event{Type: typ, JobID: e.JobID})
}
