package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/codemart/internal/actor"
	auditdomain "github.com/smallbiznis/codemart/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

// NewEnforcer loads policies through the gorm adapter and seeds the defaults.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

// NewMemoryEnforcer returns an enforcer holding only the seeded policies.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	return newEnforcer(nil)
}

func newEnforcer(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter != nil {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, err
	}

	enforcer.EnableAutoSave(adapter != nil)
	enforcer.EnableAutoBuildRoleLinks(true)
	if adapter != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

// Grants resolves the session role and the user's assigned roles and
// permissions into a flat action set. Disabled roles and permissions are
// excluded after the union.
func (s *ServiceImpl) Grants(ctx context.Context, userID snowflake.ID, sessionRole actor.Role) (GrantSet, error) {
	roles := map[string]struct{}{}
	if code := strings.TrimSpace(string(sessionRole)); code != "" {
		roles[strings.ToLower(code)] = struct{}{}
	}

	var direct []string
	if userID != 0 {
		assigned, err := s.pluck(ctx, &UserRole{}, "role_code", "user_id = ?", userID)
		if err != nil {
			return nil, err
		}
		for _, code := range assigned {
			roles[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
		}

		direct, err = s.pluck(ctx, &UserPermission{}, "permission_code", "user_id = ?", userID)
		if err != nil {
			return nil, err
		}
	}

	disabledRoles, err := s.pluck(ctx, &Role{}, "code", "disabled = ?", true)
	if err != nil {
		return nil, err
	}
	for _, code := range disabledRoles {
		delete(roles, strings.ToLower(strings.TrimSpace(code)))
	}

	grants := GrantSet{}
	for code := range roles {
		policies, err := s.enforcer.GetImplicitPermissionsForUser(roleSubject(code))
		if err != nil {
			return nil, err
		}
		for _, policy := range policies {
			if len(policy) < 3 {
				continue
			}
			grants[policy[2]] = struct{}{}
		}
	}
	for _, code := range direct {
		if code = strings.TrimSpace(code); code != "" {
			grants[code] = struct{}{}
		}
	}

	disabledPerms, err := s.pluck(ctx, &Permission{}, "code", "disabled = ?", true)
	if err != nil {
		return nil, err
	}
	for _, code := range disabledPerms {
		delete(grants, strings.TrimSpace(code))
	}

	return grants, nil
}

func (s *ServiceImpl) Authorize(ctx context.Context, caller actor.Actor, action string) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}
	if !caller.Valid() {
		s.auditDenied(ctx, caller, action)
		return ErrInvalidActor
	}

	grants, err := s.Grants(ctx, caller.UserID, caller.Role)
	if err != nil {
		return err
	}
	if !grants.Has(action) {
		s.log.Debug("action denied",
			zap.String("subject", caller.Subject()),
			zap.String("action", action),
		)
		s.auditDenied(ctx, caller, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) pluck(ctx context.Context, model any, column string, query string, args ...any) ([]string, error) {
	if s.db == nil {
		return nil, nil
	}
	var out []string
	if err := s.db.WithContext(ctx).Model(model).Where(query, args...).Pluck(column, &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, caller actor.Actor, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := ObjectFor(action)
	_ = s.auditSvc.AuditLog(ctx, caller, "authorization.denied", "authorization", &targetID, map[string]any{
		"action":  action,
		"subject": caller.Subject(),
	})
}

func roleSubject(code string) string {
	return "role:" + code
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:buyer", ObjectOrder, ActionOrderCreate},
		{"role:buyer", ObjectOrder, ActionOrderPay},
		{"role:buyer", ObjectOrder, ActionOrderCancel},
		{"role:buyer", ObjectOrder, ActionOrderComplete},
		{"role:buyer", ObjectOrder, ActionOrderRefund},
		{"role:buyer", ObjectStats, ActionStatsView},
		{"role:buyer", ObjectLedger, ActionLedgerView},

		{"role:seller", ObjectOrder, ActionOrderRefund},
		{"role:seller", ObjectStats, ActionStatsView},
		{"role:seller", ObjectLedger, ActionLedgerView},

		{"role:system", ObjectOrder, ActionOrderCreate},
		{"role:system", ObjectOrder, ActionOrderPay},
		{"role:system", ObjectOrder, ActionOrderCancel},
		{"role:system", ObjectOrder, ActionOrderComplete},
		{"role:system", ObjectOrder, ActionOrderRefund},
		{"role:system", ObjectStats, ActionStatsView},
		{"role:system", ObjectLedger, ActionLedgerView},
		{"role:system", ObjectLedger, ActionLedgerGrant},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// admin inherits everything system holds
	has, err := enforcer.HasGroupingPolicy("role:admin", "role:system")
	if err != nil {
		return err
	}
	if !has {
		if _, err := enforcer.AddGroupingPolicy("role:admin", "role:system"); err != nil {
			return err
		}
	}
	return nil
}
