package service

import (
	"context"
	"net/http"
	"strconv"

	"nohate/internal/biz"
	"nohate/internal/pkg/pagination"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewModerationService, NewAdminService)

// ScanScheduler queues scans behind the single scan worker.
type ScanScheduler interface {
	// Enqueue schedules trig and returns one job id per queued job.
	Enqueue(trig biz.Trigger) ([]string, error)
	// Reschedule moves the periodic job to a new interval.
	Reschedule(intervalMinutes int)
}

// IndexedItem is a list entry with its absolute position, the index that
// item actions expect.
type IndexedItem struct {
	Index int `json:"index"`
	biz.FlaggedItem
}

func indexPage(items []biz.FlaggedItem, req *pagination.OffsetRequest) *pagination.OffsetResponse[IndexedItem] {
	page := pagination.Paginate(items, req)
	out := make([]IndexedItem, len(page.Items))
	for i, it := range page.Items {
		out[i] = IndexedItem{Index: page.Offset + i, FlaggedItem: it}
	}
	return &pagination.OffsetResponse[IndexedItem]{
		Items:      out,
		Offset:     page.Offset,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	}
}

func pageRequest(ctx khttp.Context) (*pagination.OffsetRequest, error) {
	req, err := pagination.ParseOffsetRequest(ctx.Query())
	if err != nil {
		return nil, errors.BadRequest("INVALID_PAGE", err.Error())
	}
	return req, nil
}

func indexVar(ctx khttp.Context) (int, error) {
	raw := ctx.Vars().Get("index")
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, errors.BadRequest("INVALID_INDEX", "index must be a non-negative integer")
	}
	return i, nil
}

// serve runs fn through the server middleware chain under operation op and
// writes its result as JSON.
func serve(ctx khttp.Context, op string, req any, fn func(context.Context) (any, error)) error {
	khttp.SetOperation(ctx, op)
	h := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		return fn(c)
	})
	out, err := h(ctx, req)
	if err != nil {
		return err
	}
	return ctx.Result(http.StatusOK, out)
}

// Empty is the body of responses that carry no data.
type Empty struct{}
