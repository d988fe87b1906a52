package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/audit"
	"github.com/soubhik-sen/FLUXPORT/internal/domain"
	"github.com/soubhik-sen/FLUXPORT/internal/infra"
	"github.com/soubhik-sen/FLUXPORT/internal/metadata"
	"github.com/soubhik-sen/FLUXPORT/internal/scope"
)

// ScopeResolver достает роли и назначения пользователя из хранилища
type ScopeResolver interface {
	ResolveUserScope(ctx context.Context, email string) (*domain.UserScope, error)
}

// Core — оркестратор горячего пути: разрешение режима, загрузка документа,
// вычисление скоупа, метрики и выборочный аудит. Вся логика решения живет
// в чистом движке scope; Core только собирает входы и разводит побочные эффекты.
type Core struct {
	cfg       infra.PolicyConfig
	evaluator *scope.Engine
	rollout   *scope.Rollout
	source    *metadata.Source
	scopes    ScopeResolver
	kill      *KillSwitchManager
	sampler   *audit.Sampler
	metrics   *Metrics
	logger    *zap.Logger
}

func NewCore(
	cfg infra.PolicyConfig,
	source *metadata.Source,
	scopes ScopeResolver,
	kill *KillSwitchManager,
	sampler *audit.Sampler,
	metrics *Metrics,
	logger *zap.Logger,
) *Core {
	return &Core{
		cfg:       cfg,
		evaluator: scope.NewEngine(cfg.PrecedenceOrder()),
		rollout:   scope.NewRollout(cfg.RolloutPatterns()),
		source:    source,
		scopes:    scopes,
		kill:      kill,
		sampler:   sampler,
		metrics:   metrics,
		logger:    logger,
	}
}

// Decide вычисляет скоуп видимости для одного запроса.
// Никогда не возвращает ошибку: сбой хранилища скоупов трактуется как
// пустой скоуп пользователя, сбой источника документа гасится адаптером.
func (c *Core) Decide(ctx context.Context, req domain.DecisionRequest) domain.ScopeResult {
	start := time.Now()

	req.Path = scope.NormalizePath(req.Path)
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	req.EndpointKey = strings.ToLower(strings.TrimSpace(req.EndpointKey))
	if req.TraceID == "" {
		req.TraceID = extractTraceID(ctx)
	}

	enabled := c.cfg.Enabled && !c.kill.IsDisabled()
	mode := scope.ResolveMode(
		enabled,
		domain.ParsePolicyMode(c.cfg.Mode),
		c.cfg.UnionEnabled,
		c.rollout.Applies(req.EndpointKey),
	)

	user := c.resolveUser(ctx, req.UserEmail)

	var res domain.ScopeResult
	switch mode {
	case domain.ModeLegacy:
		res = c.evaluator.Legacy(user)
	case domain.ModeUnion:
		res = c.evaluator.Union(user)
	default: // union_metadata
		doc := c.source.Resolve(ctx, domain.TypeKeyRoleScopePolicy)
		res = c.evaluator.Evaluate(req, user, doc, c.cfg.FallbackToUnion)
	}

	elapsed := time.Since(start)
	c.metrics.TotalDecisions.WithLabelValues(res.Mode, string(res.Decision)).Inc()
	c.metrics.DecisionDuration.WithLabelValues(res.Mode, string(res.Decision)).Observe(elapsed.Seconds())
	if res.IsDenied() {
		c.metrics.DenyTotal.WithLabelValues(res.Reason).Inc()
	}

	c.sampler.MaybeRecord(req, res, elapsed)
	c.metrics.AuditDropped.Set(float64(c.sampler.Dropped()))
	return res
}

// Сбой или отсутствие пользователя — пустой скоуп, а не ошибка:
// дальше движок сам откажет по собственным правилам строгости
func (c *Core) resolveUser(ctx context.Context, email string) domain.UserScope {
	user, err := c.scopes.ResolveUserScope(ctx, email)
	if err != nil {
		c.logger.Warn("user scope resolution failed, treating as empty",
			zap.String("email", email), zap.Error(err))
		return domain.UserScope{}
	}
	if user == nil {
		return domain.UserScope{}
	}
	return *user
}

// HandleDecision — POST /v1/decision.
// Тело: DecisionRequest; ответ: ScopeResult. Решение всегда 200:
// отказ — это валидный результат, а не ошибка транспорта.
func (c *Core) HandleDecision(w http.ResponseWriter, r *http.Request) {
	var req domain.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.UserEmail == "" || req.Path == "" {
		http.Error(w, `{"error": "user_email and path are required"}`, http.StatusBadRequest)
		return
	}
	req.ReceivedAt = time.Now()

	res := c.Decide(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// HandleHealth — проверка живости для балансировщика
func (c *Core) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status": "ok"}`))
}
