package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/actor"
	auditdomain "github.com/smallbiznis/codemart/internal/audit/domain"
	"github.com/smallbiznis/codemart/internal/authorization"
	catalogdomain "github.com/smallbiznis/codemart/internal/catalog/domain"
	"github.com/smallbiznis/codemart/internal/clock"
	"github.com/smallbiznis/codemart/internal/config"
	"github.com/smallbiznis/codemart/internal/errs"
	eventsdomain "github.com/smallbiznis/codemart/internal/events/domain"
	ledgerdomain "github.com/smallbiznis/codemart/internal/ledger/domain"
	"github.com/smallbiznis/codemart/internal/lock"
	obsmetrics "github.com/smallbiznis/codemart/internal/observability/metrics"
	"github.com/smallbiznis/codemart/internal/observability/tracing"
	"github.com/smallbiznis/codemart/internal/order/domain"
	statsdomain "github.com/smallbiznis/codemart/internal/stats/domain"
	"github.com/smallbiznis/codemart/pkg/db/pagination"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxRemarkLength = 500

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Ledger     ledgerdomain.Service
	Catalog    catalogdomain.Service
	Locker     lock.Locker
	Outbox     eventsdomain.Outbox
	Config     config.Config           `optional:"true"`
	Policy     *config.PolicyHolder    `optional:"true"`
	Clock      clock.Clock             `optional:"true"`
	AuthzSvc   authorization.Service   `optional:"true"`
	AuditSvc   auditdomain.Service     `optional:"true"`
	Stats      statsdomain.Invalidator `optional:"true"`
	ObsMetrics *obsmetrics.Metrics     `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	ledger        ledgerdomain.Service
	catalog       catalogdomain.Service
	locker        lock.Locker
	outbox        eventsdomain.Outbox
	policy        *config.PolicyHolder
	clock         clock.Clock
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	stats         statsdomain.Invalidator
	obsMetrics    *obsmetrics.Metrics
	tracer        trace.Tracer
	pointsPerUnit decimal.Decimal
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	rate := p.Config.PointsPerCurrencyUnit
	if !rate.IsPositive() {
		rate = decimal.NewFromInt(1)
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("order.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		ledger:        p.Ledger,
		catalog:       p.Catalog,
		locker:        p.Locker,
		outbox:        p.Outbox,
		policy:        p.Policy,
		clock:         clk,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		stats:         p.Stats,
		obsMetrics:    p.ObsMetrics,
		tracer:        otel.Tracer("github.com/smallbiznis/codemart/internal/order"),
		pointsPerUnit: rate,
	}
}

func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (order domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "order.create", attribute.String("project_id", req.ProjectID.String()))
	defer func() { s.endSpan(ctx, span, "order.create", err) }()

	if !req.Caller.Valid() || req.Caller.UserID == 0 {
		return domain.Order{}, domain.ErrInvalidCaller
	}
	if req.ProjectID == 0 {
		return domain.Order{}, domain.ErrInvalidProject
	}
	remark := strings.TrimSpace(req.Remark)
	if utf8.RuneCountInString(remark) > maxRemarkLength {
		return domain.Order{}, domain.ErrRemarkTooLong
	}
	if err := s.authorize(ctx, req.Caller, authorization.ActionOrderCreate); err != nil {
		return domain.Order{}, err
	}

	quote, err := s.catalog.Lookup(ctx, req.ProjectID)
	if err != nil {
		return domain.Order{}, err
	}
	if quote.SellerID == req.Caller.UserID {
		return domain.Order{}, domain.ErrSelfPurchase
	}

	now := s.clock.Now()
	order = domain.Order{
		ID:            s.genID.Generate(),
		OrderNo:       "CM" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		BuyerID:       req.Caller.UserID,
		SellerID:      quote.SellerID,
		ProjectID:     quote.ProjectID,
		Amount:        quote.Price.Mul(s.pointsPerUnit).Round(4),
		PointsAmount:  decimal.Zero,
		BalanceAmount: decimal.Zero,
		RefundAmount:  decimal.Zero,
		Status:        domain.StatusPendingPayment,
		Remark:        remark,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := order.Validate(); err != nil {
		return domain.Order{}, err
	}

	// serializes duplicate-purchase checks for the same buyer
	release, err := s.locker.Acquire(ctx, lock.AccountKeys(order.BuyerID)...)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.ExistsActive(ctx, tx, order.BuyerID, order.ProjectID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicatePurchase
		}
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		return s.publish(ctx, tx, order, eventsdomain.EventOrderCreated, nil, req.Caller, map[string]any{
			"project_id": order.ProjectID.String(),
			"amount":     order.Amount.String(),
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.obsMetrics.RecordOrderCreated(ctx)
	s.afterCommit(ctx, order, req.Caller, "order.create", map[string]any{
		"order_no": order.OrderNo,
		"amount":   order.Amount.String(),
		"remark":   order.Remark,
	})
	return order, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetOrderRequest) (domain.Order, error) {
	if !req.Caller.Valid() {
		return domain.Order{}, domain.ErrInvalidCaller
	}

	var (
		order *domain.Order
		err   error
	)
	switch {
	case req.OrderID != 0:
		order, err = s.repo.FindByID(ctx, s.db, req.OrderID)
	case strings.TrimSpace(req.OrderNo) != "":
		order, err = s.repo.FindByOrderNo(ctx, s.db, req.OrderNo)
	default:
		return domain.Order{}, domain.ErrInvalidOrderID
	}
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if !isParticipant(req.Caller, *order) {
		return domain.Order{}, domain.ErrNotParticipant
	}
	return *order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrdersRequest) (domain.ListOrdersResponse, error) {
	if !req.Caller.Valid() || req.Caller.UserID == 0 {
		return domain.ListOrdersResponse{}, domain.ErrInvalidCaller
	}
	if req.Status != nil && !req.Status.Valid() {
		return domain.ListOrdersResponse{}, domain.ErrInvalidStatus
	}

	filter := domain.ListFilter{Status: req.Status}
	switch req.Perspective {
	case "", domain.PerspectiveBuyer:
		filter.BuyerID = req.Caller.UserID
	case domain.PerspectiveSeller:
		filter.SellerID = req.Caller.UserID
	default:
		return domain.ListOrdersResponse{}, errs.New(errs.ErrValidation, "invalid_perspective")
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListOrdersResponse{}, domain.ErrInvalidPageToken
		}
		beforeID, err := snowflake.ParseString(cursor.ID)
		if err != nil || beforeID == 0 {
			return domain.ListOrdersResponse{}, domain.ErrInvalidPageToken
		}
		filter.BeforeID = beforeID
	}

	pageSize := pagination.NormalizePageSize(req.PageSize)
	filter.Limit = int(pageSize) + 1

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListOrdersResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(order *domain.Order) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: order.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		orders = append(orders, *item)
	}
	return domain.ListOrdersResponse{PageInfo: pageInfo, Orders: orders}, nil
}

func (s *Service) authorize(ctx context.Context, caller actor.Actor, action string) error {
	if s.authzSvc == nil {
		return nil
	}
	return s.authzSvc.Authorize(ctx, caller, action)
}

// load reads the order outside any transaction for the pre-lock checks.
func (s *Service) load(ctx context.Context, id snowflake.ID) (domain.Order, error) {
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *order, nil
}

// reverify re-reads the order under a row lock and fails if it moved since load.
func (s *Service) reverify(ctx context.Context, tx *gorm.DB, loaded domain.Order) (domain.Order, error) {
	current, err := s.repo.FindByIDForUpdate(ctx, tx, loaded.ID)
	if err != nil {
		return domain.Order{}, err
	}
	if current == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if current.Status != loaded.Status || current.Version != loaded.Version {
		return domain.Order{}, domain.ErrOrderConflict
	}
	return *current, nil
}

// transition validates and writes next, conditional on the row still being at current.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, current domain.Order, next *domain.Order) error {
	if !domain.CanTransition(current.Status, next.Status) {
		return domain.ErrOrderConflict
	}
	next.Version = current.Version + 1
	if err := next.Validate(); err != nil {
		return err
	}
	return s.repo.Transition(ctx, tx, next, current.Status, current.Version)
}

func (s *Service) publish(ctx context.Context, tx *gorm.DB, order domain.Order, typ eventsdomain.EventType, from *domain.OrderStatus, caller actor.Actor, payload map[string]any) error {
	evt := eventsdomain.Event{
		OrderID:  order.ID,
		OrderNo:  order.OrderNo,
		Type:     typ,
		ToStatus: order.Status.String(),
		Actor:    caller,
		Payload:  payload,
	}
	if from != nil {
		evt.FromStatus = from.String()
	}
	return s.outbox.PublishTx(ctx, tx, evt)
}

// afterCommit runs the side effects that must not affect the committed result.
func (s *Service) afterCommit(ctx context.Context, order domain.Order, caller actor.Actor, action string, metadata map[string]any) {
	if s.stats != nil {
		s.stats.InvalidateUser(order.BuyerID)
		s.stats.InvalidateUser(order.SellerID)
	}

	s.log.Info(action,
		zap.String("order_id", order.ID.String()),
		zap.String("order_no", order.OrderNo),
		zap.String("status", order.Status.String()),
		zap.String("actor", caller.Subject()),
	)

	if s.auditSvc == nil {
		return
	}
	targetID := order.ID.String()
	if err := s.auditSvc.AuditLog(ctx, caller, action, "order", &targetID, metadata); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("order_id", targetID),
			zap.Error(err),
		)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(tracing.SafeAttributes(attrs...)...))
}

func (s *Service) endSpan(ctx context.Context, span trace.Span, operation string, err error) {
	if err != nil {
		kind := errs.KindOf(err)
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, kind)
		s.obsMetrics.RecordFailure(ctx, operation, kind)
		if kind == "internal" {
			s.log.Error(operation+" failed", zap.Error(err))
		} else {
			s.log.Debug(operation+" rejected", zap.String("kind", kind), zap.String("reason", errs.Reason(err)))
		}
	}
	span.End()
}

func isParticipant(caller actor.Actor, order domain.Order) bool {
	if caller.IsSystem() {
		return true
	}
	return caller.UserID != 0 && (caller.UserID == order.BuyerID || caller.UserID == order.SellerID)
}

func isBuyerOrSystem(caller actor.Actor, order domain.Order) bool {
	if caller.IsSystem() {
		return true
	}
	return caller.UserID != 0 && caller.UserID == order.BuyerID
}
