package service

import (
	"context"

	"nohate/internal/biz"
	"nohate/internal/pkg/pagination"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationTrainingNext    = "/nohate.v1.Admin/TrainingNext"
	OperationTrainingAnswer  = "/nohate.v1.Admin/TrainingAnswer"
	OperationGetLexicon      = "/nohate.v1.Admin/GetLexicon"
	OperationTeach           = "/nohate.v1.Admin/Teach"
	OperationGetSettings     = "/nohate.v1.Admin/GetSettings"
	OperationSaveSettings    = "/nohate.v1.Admin/SaveSettings"
	OperationSetCredential   = "/nohate.v1.Admin/SetCredential"
	OperationClearCredential = "/nohate.v1.Admin/ClearCredential"
	OperationMetrics         = "/nohate.v1.Admin/Metrics"
	OperationListLogs        = "/nohate.v1.Admin/ListLogs"
	OperationClearLogs       = "/nohate.v1.Admin/ClearLogs"
)

// AdminService serves training, settings and the diagnostic console.
type AdminService struct {
	training  *biz.TrainingUsecase
	settings  *biz.SettingsUsecase
	console   *biz.ConsoleUsecase
	scheduler ScanScheduler
	log       *log.Helper
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	training *biz.TrainingUsecase,
	settings *biz.SettingsUsecase,
	console *biz.ConsoleUsecase,
	scheduler ScanScheduler,
	logger log.Logger,
) *AdminService {
	return &AdminService{
		training:  training,
		settings:  settings,
		console:   console,
		scheduler: scheduler,
		log:       log.NewHelper(logger),
	}
}

// TrainingReply carries a queued text.
type TrainingReply struct {
	Text string `json:"text"`
}

// AnswerRequest answers the oldest queued text.
type AnswerRequest struct {
	Verdict string `json:"verdict"`
}

// TeachRequest adds a phrase to the user lexicon.
type TeachRequest struct {
	Phrase string `json:"phrase"`
}

// RegisterAdminHTTPServer routes the admin API on s.
func RegisterAdminHTTPServer(s *khttp.Server, srv *AdminService) {
	r := s.Route("/v1")
	r.GET("/training/next", srv.trainingNext)
	r.POST("/training/answer", srv.trainingAnswer)
	r.GET("/lexicon", srv.lexicon)
	r.POST("/lexicon/{kind}", srv.teach)
	r.GET("/settings", srv.getSettings)
	r.PUT("/settings", srv.saveSettings)
	r.PUT("/credentials/{provider}", srv.setCredential)
	r.DELETE("/credentials/{provider}", srv.clearCredential)
	r.GET("/metrics", srv.metrics)
	r.GET("/logs", srv.listLogs)
	r.DELETE("/logs", srv.clearLogs)
}

func (s *AdminService) trainingNext(ctx khttp.Context) error {
	return serve(ctx, OperationTrainingNext, nil, func(c context.Context) (any, error) {
		text, err := s.training.Next(c)
		if err != nil {
			return nil, err
		}
		return TrainingReply{Text: text}, nil
	})
}

func (s *AdminService) trainingAnswer(ctx khttp.Context) error {
	var in AnswerRequest
	if err := ctx.Bind(&in); err != nil {
		return errors.BadRequest("INVALID_BODY", err.Error())
	}
	v, ok := biz.ParseVerdict(in.Verdict)
	if !ok {
		return errors.BadRequest("INVALID_VERDICT", "verdict must be hate or safe")
	}
	return serve(ctx, OperationTrainingAnswer, &in, func(c context.Context) (any, error) {
		text, err := s.training.Answer(c, v)
		if err != nil {
			return nil, err
		}
		return TrainingReply{Text: text}, nil
	})
}

func (s *AdminService) lexicon(ctx khttp.Context) error {
	return serve(ctx, OperationGetLexicon, nil, func(c context.Context) (any, error) {
		return s.training.Lexicon(c)
	})
}

func (s *AdminService) teach(ctx khttp.Context) error {
	v, ok := biz.ParseVerdict(ctx.Vars().Get("kind"))
	if !ok {
		return errors.BadRequest("INVALID_KIND", "kind must be hate or safe")
	}
	var in TeachRequest
	if err := ctx.Bind(&in); err != nil {
		return errors.BadRequest("INVALID_BODY", err.Error())
	}
	return serve(ctx, OperationTeach, &in, func(c context.Context) (any, error) {
		return Empty{}, s.training.Teach(c, v, in.Phrase)
	})
}

func (s *AdminService) getSettings(ctx khttp.Context) error {
	return serve(ctx, OperationGetSettings, nil, func(c context.Context) (any, error) {
		return s.settings.Get(c)
	})
}

// saveSettings decodes the body over the stored settings, so omitted
// fields keep their values.
func (s *AdminService) saveSettings(ctx khttp.Context) error {
	in, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Bind(&in); err != nil {
		return errors.BadRequest("INVALID_BODY", err.Error())
	}
	return serve(ctx, OperationSaveSettings, &in, func(c context.Context) (any, error) {
		saved, err := s.settings.Save(c, in)
		if err != nil {
			return nil, err
		}
		s.scheduler.Reschedule(saved.IntervalMinutes)
		return saved, nil
	})
}

func providerVar(ctx khttp.Context) (string, error) {
	switch p := ctx.Vars().Get("provider"); p {
	case biz.ConnectorGraph, biz.ConnectorSession:
		return p, nil
	}
	return "", errors.BadRequest("UNKNOWN_PROVIDER", "provider must be "+biz.ConnectorGraph+" or "+biz.ConnectorSession)
}

func (s *AdminService) setCredential(ctx khttp.Context) error {
	provider, err := providerVar(ctx)
	if err != nil {
		return err
	}
	var in biz.Credential
	if err := ctx.Bind(&in); err != nil {
		return errors.BadRequest("INVALID_BODY", err.Error())
	}
	if in.IsZero() {
		return errors.BadRequest("EMPTY_CREDENTIAL", "oauth_token or session_cookies is required")
	}
	return serve(ctx, OperationSetCredential, provider, func(c context.Context) (any, error) {
		return Empty{}, s.settings.SetCredential(c, provider, in)
	})
}

func (s *AdminService) clearCredential(ctx khttp.Context) error {
	provider, err := providerVar(ctx)
	if err != nil {
		return err
	}
	return serve(ctx, OperationClearCredential, provider, func(c context.Context) (any, error) {
		return Empty{}, s.settings.ClearProvider(c, provider)
	})
}

func (s *AdminService) metrics(ctx khttp.Context) error {
	return serve(ctx, OperationMetrics, nil, func(c context.Context) (any, error) {
		return s.console.Metrics(c)
	})
}

func (s *AdminService) listLogs(ctx khttp.Context) error {
	req, err := pageRequest(ctx)
	if err != nil {
		return err
	}
	return serve(ctx, OperationListLogs, req, func(c context.Context) (any, error) {
		logs, err := s.console.Logs(c)
		if err != nil {
			return nil, err
		}
		return pagination.Paginate(logs, req), nil
	})
}

func (s *AdminService) clearLogs(ctx khttp.Context) error {
	return serve(ctx, OperationClearLogs, nil, func(c context.Context) (any, error) {
		if err := s.console.ClearLogs(c); err != nil {
			return nil, err
		}
		s.log.Info("console logs cleared")
		return Empty{}, nil
	})
}
