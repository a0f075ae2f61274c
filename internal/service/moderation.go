package service

import (
	"context"
	"strings"

	"nohate/internal/biz"
	"nohate/internal/pkg/pagination"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationListFlagged  = "/nohate.v1.Moderation/ListFlagged"
	OperationClearFlagged = "/nohate.v1.Moderation/ClearFlagged"
	OperationDeleteItem   = "/nohate.v1.Moderation/DeleteFlagged"
	OperationHideItem     = "/nohate.v1.Moderation/Hide"
	OperationCorrectItem  = "/nohate.v1.Moderation/CorrectFalsePositive"
	OperationReportItem   = "/nohate.v1.Moderation/Report"
	OperationListHidden   = "/nohate.v1.Moderation/ListHidden"
	OperationUnhideItem   = "/nohate.v1.Moderation/Unhide"
	OperationClassify     = "/nohate.v1.Moderation/Classify"
	OperationStartScan    = "/nohate.v1.Moderation/StartScan"
	OperationScanProgress = "/nohate.v1.Moderation/ScanProgress"
	OperationScanHistory  = "/nohate.v1.Moderation/ScanHistory"
	OperationLastScan     = "/nohate.v1.Moderation/LastScan"
	OperationLastComments = "/nohate.v1.Moderation/LastComments"
)

// ModerationService serves review of flagged comments and scan control.
type ModerationService struct {
	review    *biz.ReviewUsecase
	scan      *biz.ScanUsecase
	scheduler ScanScheduler
	log       *log.Helper
}

// NewModerationService creates a new ModerationService.
func NewModerationService(review *biz.ReviewUsecase, scan *biz.ScanUsecase, scheduler ScanScheduler, logger log.Logger) *ModerationService {
	return &ModerationService{
		review:    review,
		scan:      scan,
		scheduler: scheduler,
		log:       log.NewHelper(logger),
	}
}

// ClassifyRequest asks for a decision on one text.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ScanRequest starts a scan. Texts makes it a manual batch and URL a post
// import; with neither, Mode picks the run type and defaults to a connector poll.
type ScanRequest struct {
	Texts []string `json:"texts"`
	URL   string   `json:"url"`
	Mode  string   `json:"mode"`
}

// ScanReply lists the queued job ids.
type ScanReply struct {
	Jobs []string `json:"jobs"`
}

// ItemReply carries the item an action moved.
type ItemReply struct {
	Item    biz.FlaggedItem `json:"item"`
	Preview string          `json:"preview"`
}

// RegisterModerationHTTPServer routes the moderation API on s.
func RegisterModerationHTTPServer(s *khttp.Server, srv *ModerationService) {
	r := s.Route("/v1")
	r.GET("/flagged", srv.listFlagged)
	r.DELETE("/flagged", srv.clearFlagged)
	r.DELETE("/flagged/{index}", srv.itemAction(OperationDeleteItem, srv.review.Remove))
	r.POST("/flagged/{index}/hide", srv.itemAction(OperationHideItem, srv.review.Hide))
	r.POST("/flagged/{index}/correct", srv.itemAction(OperationCorrectItem, srv.review.Correct))
	r.POST("/flagged/{index}/report", srv.itemAction(OperationReportItem, srv.review.Report))
	r.GET("/hidden", srv.listHidden)
	r.POST("/hidden/{index}/unhide", srv.itemAction(OperationUnhideItem, srv.review.Unhide))
	r.POST("/classify", srv.classify)
	r.POST("/scans", srv.startScan)
	r.GET("/scans/progress", srv.progress)
	r.GET("/scans/history", srv.history)
	r.GET("/scans/last", srv.lastScan)
	r.GET("/scans/comments", srv.lastComments)
}

func (s *ModerationService) listFlagged(ctx khttp.Context) error {
	req, err := pageRequest(ctx)
	if err != nil {
		return err
	}
	return serve(ctx, OperationListFlagged, req, func(c context.Context) (any, error) {
		items, err := s.review.Flagged(c)
		if err != nil {
			return nil, err
		}
		return indexPage(items, req), nil
	})
}

func (s *ModerationService) listHidden(ctx khttp.Context) error {
	req, err := pageRequest(ctx)
	if err != nil {
		return err
	}
	return serve(ctx, OperationListHidden, req, func(c context.Context) (any, error) {
		items, err := s.review.Hidden(c)
		if err != nil {
			return nil, err
		}
		return indexPage(items, req), nil
	})
}

func (s *ModerationService) clearFlagged(ctx khttp.Context) error {
	return serve(ctx, OperationClearFlagged, nil, func(c context.Context) (any, error) {
		return Empty{}, s.review.Clear(c)
	})
}

// itemAction adapts a review action addressed by the {index} path variable.
func (s *ModerationService) itemAction(op string, fn func(context.Context, int) (biz.FlaggedItem, error)) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		index, err := indexVar(ctx)
		if err != nil {
			return err
		}
		return serve(ctx, op, index, func(c context.Context) (any, error) {
			item, err := fn(c, index)
			if err != nil {
				return nil, err
			}
			return ItemReply{Item: item, Preview: biz.Preview(item.Text)}, nil
		})
	}
}

func (s *ModerationService) classify(ctx khttp.Context) error {
	var in ClassifyRequest
	if err := ctx.Bind(&in); err != nil {
		return errors.BadRequest("INVALID_BODY", err.Error())
	}
	if strings.TrimSpace(in.Text) == "" {
		return errors.BadRequest("BLANK_TEXT", "text must not be blank")
	}
	return serve(ctx, OperationClassify, &in, func(c context.Context) (any, error) {
		return s.scan.Classify(c, in.Text)
	})
}

func (s *ModerationService) startScan(ctx khttp.Context) error {
	var in ScanRequest
	if err := ctx.Bind(&in); err != nil {
		return errors.BadRequest("INVALID_BODY", err.Error())
	}
	trig, err := in.trigger()
	if err != nil {
		return err
	}
	return serve(ctx, OperationStartScan, &in, func(context.Context) (any, error) {
		jobs, err := s.scheduler.Enqueue(trig)
		if err != nil {
			return nil, err
		}
		s.log.Infof("queued %s scan as %d job(s)", trig.Source(), len(jobs))
		return ScanReply{Jobs: jobs}, nil
	})
}

func (in *ScanRequest) trigger() (biz.Trigger, error) {
	switch {
	case len(in.Texts) > 0:
		texts := make([]string, 0, len(in.Texts))
		for _, t := range in.Texts {
			if strings.TrimSpace(t) != "" {
				texts = append(texts, t)
			}
		}
		if len(texts) == 0 {
			return biz.Trigger{}, errors.BadRequest("EMPTY_BATCH", "texts must contain a non-blank comment")
		}
		return biz.Trigger{Mode: biz.TriggerManualBatch, Texts: texts}, nil
	case strings.TrimSpace(in.URL) != "":
		return biz.Trigger{Mode: biz.TriggerURLImport, URL: strings.TrimSpace(in.URL)}, nil
	case in.Mode == "":
		return biz.Trigger{Mode: biz.TriggerConnectorPoll}, nil
	}
	mode, ok := biz.ParseTriggerMode(in.Mode)
	if !ok || mode == biz.TriggerManualBatch || mode == biz.TriggerURLImport {
		return biz.Trigger{}, errors.BadRequest("INVALID_MODE", "mode must be periodic or connector-poll")
	}
	return biz.Trigger{Mode: mode}, nil
}

func (s *ModerationService) progress(ctx khttp.Context) error {
	return serve(ctx, OperationScanProgress, nil, func(c context.Context) (any, error) {
		return s.scan.Progress(c)
	})
}

func (s *ModerationService) history(ctx khttp.Context) error {
	req, err := pageRequest(ctx)
	if err != nil {
		return err
	}
	return serve(ctx, OperationScanHistory, req, func(c context.Context) (any, error) {
		stats, err := s.scan.History(c)
		if err != nil {
			return nil, err
		}
		return pagination.Paginate(stats, req), nil
	})
}

func (s *ModerationService) lastScan(ctx khttp.Context) error {
	return serve(ctx, OperationLastScan, nil, func(c context.Context) (any, error) {
		return s.scan.LastScan(c)
	})
}

func (s *ModerationService) lastComments(ctx khttp.Context) error {
	req, err := pageRequest(ctx)
	if err != nil {
		return err
	}
	return serve(ctx, OperationLastComments, req, func(c context.Context) (any, error) {
		texts, err := s.scan.LastComments(c)
		if err != nil {
			return nil, err
		}
		return pagination.Paginate(texts, req), nil
	})
}
