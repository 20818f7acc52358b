// Package pipeline は物語から漫画ページを生成する一連の工程を、クォータと階層ポリシーの下で順に実行します。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/go-manga-pipeline/pkg/character"
	"github.com/shouni/go-manga-pipeline/pkg/config"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/layout"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
	"github.com/shouni/go-manga-pipeline/pkg/quota"
	"github.com/shouni/go-manga-pipeline/pkg/store"
)

// projectTitleLayout は自動作成するプロジェクト名の日時書式です。
const projectTitleLayout = "2006-01-02 15:04"

// Request は 1 回の生成要求です。
type Request struct {
	UserID     string
	Narrative  string
	PanelCount int
	// Tier はアカウントが未作成のときに使う階層です。既存アカウントではアカウントの階層が優先されます。
	Tier domain.Tier
	// ModelID が指定されればモデルの組み合わせを使い、階層の既定プロバイダより優先します。
	ModelID string
	// TemplateID が指定されれば提案を行わずそのテンプレートを使います。
	TemplateID string
	// ProjectID が指定されれば既存プロジェクトに生成します。
	ProjectID string
}

// Dependencies は Orchestrator が利用するコンポーネントです。
type Dependencies struct {
	Registry   *provider.Registry
	Quota      *quota.Service
	Characters *character.Manager
	Layout     *layout.Engine
	Projects   store.ProjectStore
	Models     store.ModelStore
}

// Orchestrator は生成リクエストのライフサイクルを管理します。
type Orchestrator struct {
	deps    Dependencies
	cfg     config.Config
	limiter *rate.Limiter
	now     func() time.Time
}

// NewOrchestrator は Orchestrator を生成します。Models は省略できます。
func NewOrchestrator(cfg config.Config, deps Dependencies) (*Orchestrator, error) {
	switch {
	case deps.Registry == nil:
		return nil, fmt.Errorf("pipeline: registry は必須です")
	case deps.Quota == nil:
		return nil, fmt.Errorf("pipeline: quota service は必須です")
	case deps.Characters == nil:
		return nil, fmt.Errorf("pipeline: character manager は必須です")
	case deps.Layout == nil:
		return nil, fmt.Errorf("pipeline: layout engine は必須です")
	case deps.Projects == nil:
		return nil, fmt.Errorf("pipeline: project store は必須です")
	}

	cfg = cfg.Normalize()
	var limiter *rate.Limiter
	if cfg.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), cfg.RateBurst)
	}
	return &Orchestrator{deps: deps, cfg: cfg, limiter: limiter, now: time.Now}, nil
}

// run は 1 リクエスト分の作業状態です。
type run struct {
	req       Request
	logger    *slog.Logger
	account   *domain.Account
	llm       provider.NarrativeProvider
	img       provider.ImageProvider
	project   *domain.Project
	chars     *character.Engine
	panels    domain.Panels
	template  domain.Template
	startedAt time.Time
}

func (r *run) enter(ctx context.Context, state State, args ...any) {
	r.logger.InfoContext(ctx, "状態が遷移しました", append([]any{"state", state}, args...)...)
}

func (r *run) fail(ctx context.Context, stage State, err error) error {
	r.logger.ErrorContext(ctx, "生成に失敗しました", "state", StateFailed, "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}

// Generate は物語からプロジェクトを生成します。
//
// クォータ超過時はプロバイダを一切呼び出しません。キャラクター抽出とテンプレート提案は失敗しても続行し、
// 物語分解とパネル画像生成の失敗はリクエスト全体を失敗させます。利用量は全工程の成功後にのみ加算されます。
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*domain.Project, error) {
	r := &run{
		req:       req,
		logger:    slog.With("user_id", req.UserID),
		startedAt: o.now(),
	}
	r.enter(ctx, StateRequested, "panel_count", req.PanelCount)

	if err := validate(req); err != nil {
		return nil, r.fail(ctx, StateRequested, err)
	}

	steps := []struct {
		state State
		fn    func(context.Context, *run) error
	}{
		{StateQuotaChecked, o.checkQuota},
		{StateProvidersSelected, o.selectProviders},
		{StateProjectEnsured, o.ensureProject},
		{StateCharactersExtracted, o.extractCharacters},
		{StateNarrativeDecomposed, o.decompose},
		{StateTemplateResolved, o.resolveTemplate},
		{StatePanelSynthesizing, o.synthesizePanels},
		{StateLayoutApplied, o.applyLayout},
		{StateUsageRecorded, o.recordUsage},
	}
	for _, step := range steps {
		if err := step.fn(ctx, r); err != nil {
			return nil, r.fail(ctx, step.state, err)
		}
	}

	r.enter(ctx, StateCompleted, "duration", o.now().Sub(r.startedAt).Round(time.Millisecond))
	return r.project, nil
}

func validate(req Request) error {
	var errs []error
	if strings.TrimSpace(req.UserID) == "" {
		errs = append(errs, errors.New("user id は必須です"))
	}
	if strings.TrimSpace(req.Narrative) == "" {
		errs = append(errs, errors.New("narrative は必須です"))
	}
	if req.PanelCount <= 0 {
		errs = append(errs, fmt.Errorf("panel count は 1 以上が必要です: %d", req.PanelCount))
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) checkQuota(ctx context.Context, r *run) error {
	if _, err := o.deps.Quota.EnsureAccount(ctx, r.req.UserID, domain.ParseTier(string(r.req.Tier))); err != nil {
		return err
	}
	account, err := o.deps.Quota.Check(ctx, r.req.UserID)
	if err != nil {
		return err
	}
	r.account = account
	r.logger = r.logger.With("tier", account.Tier)
	r.enter(ctx, StateQuotaChecked, "remaining", account.RemainingPages())
	return nil
}

func (o *Orchestrator) selectProviders(ctx context.Context, r *run) error {
	pair := ProvidersFor(r.account.Tier)
	if r.req.ModelID != "" {
		if o.deps.Models == nil {
			return fmt.Errorf("model %q: %w", r.req.ModelID, domain.ErrNotFound)
		}
		model, err := o.deps.Models.ModelByID(ctx, r.req.ModelID)
		if err != nil {
			return err
		}
		pair = ProviderPair{LLM: model.LLMProvider, Image: model.ImageProvider}
	}

	llm, err := o.deps.Registry.Narrative(pair.LLM)
	if err != nil {
		return err
	}
	img, err := o.deps.Registry.Image(pair.Image)
	if err != nil {
		return err
	}
	r.llm, r.img = llm, img
	r.enter(ctx, StateProvidersSelected, "llm", pair.LLM, "image", pair.Image)
	return nil
}

func (o *Orchestrator) ensureProject(ctx context.Context, r *run) error {
	if r.req.ProjectID != "" {
		project, err := o.deps.Projects.GetProject(ctx, r.req.ProjectID)
		if err != nil {
			return err
		}
		r.project = project
	} else {
		now := o.now()
		project := &domain.Project{
			UserID:    r.req.UserID,
			Title:     "Project " + now.Format(projectTitleLayout),
			Narrative: r.req.Narrative,
			CreatedAt: now,
		}
		if err := o.deps.Projects.CreateProject(ctx, project); err != nil {
			return err
		}
		r.project = project
	}
	r.logger = r.logger.With("project_id", r.project.ID)
	r.enter(ctx, StateProjectEnsured)
	return nil
}

// extractCharacters は失敗しても警告のみで続行します。
func (o *Orchestrator) extractCharacters(ctx context.Context, r *run) error {
	engine, err := o.deps.Characters.ForProject(ctx, r.project.ID)
	if err != nil {
		r.logger.WarnContext(ctx, "キャラクター情報を読み込めないため一貫性指示なしで続行します", "error", err)
		r.enter(ctx, StateCharactersExtracted, "characters", 0)
		return nil
	}
	r.chars = engine

	if _, err := engine.Extract(ctx, r.llm, r.req.Narrative); err != nil {
		r.logger.WarnContext(ctx, "キャラクター抽出に失敗しましたが続行します", "error", err)
	}
	r.enter(ctx, StateCharactersExtracted, "characters", len(engine.Profiles()))
	return nil
}

func (o *Orchestrator) decompose(ctx context.Context, r *run) error {
	res, err := r.llm.Decompose(ctx, r.req.Narrative, r.req.PanelCount)
	if err != nil {
		return err
	}
	if res.Degraded() {
		r.logger.WarnContext(ctx, "物語を分解できなかったためプレースホルダーで続行します", "strategy", res.Strategy)
	}
	r.panels = domain.FromDrafts(res.Panels)
	r.enter(ctx, StateNarrativeDecomposed, "panels", len(r.panels), "strategy", res.Strategy)
	return nil
}

func (o *Orchestrator) resolveTemplate(ctx context.Context, r *run) error {
	if r.req.TemplateID != "" {
		tpl, err := o.deps.Layout.ByID(ctx, r.req.TemplateID)
		if err != nil {
			return err
		}
		r.template = *tpl
	} else {
		candidates, err := o.deps.Layout.Available(ctx, r.account.Tier, r.req.UserID)
		if err != nil {
			r.logger.WarnContext(ctx, "利用可能なテンプレートを取得できませんでした", "error", err)
		}
		r.template = o.deps.Layout.Suggest(ctx, r.llm, r.req.Narrative, len(r.panels), candidates)
	}
	r.project.TemplateSlug = r.template.Slug
	r.enter(ctx, StateTemplateResolved, "template", r.template.Slug)
	return nil
}

func (o *Orchestrator) synthesizePanels(ctx context.Context, r *run) error {
	params := QualityFor(r.account.Tier)
	params.Timeout = o.cfg.PollTimeout

	r.enter(ctx, StatePanelSynthesizing, "provider", r.img.Name(), "concurrency", o.cfg.Concurrency)
	panels, err := o.synthesize(ctx, r.logger, r.img, r.chars, r.panels, params)
	if err != nil {
		return err
	}
	r.panels = panels
	return nil
}

func (o *Orchestrator) applyLayout(ctx context.Context, r *run) error {
	panels, err := o.deps.Layout.Apply(ctx, r.project.ID, r.panels, r.template)
	if err != nil {
		return err
	}
	r.project.Panels = panels
	if err := o.deps.Projects.SaveProject(ctx, r.project); err != nil {
		return err
	}
	r.enter(ctx, StateLayoutApplied, "positioned", domain.Panels(panels).Positioned())
	return nil
}

func (o *Orchestrator) recordUsage(ctx context.Context, r *run) error {
	if err := o.deps.Quota.Increment(ctx, r.req.UserID); err != nil {
		return err
	}
	r.enter(ctx, StateUsageRecorded)
	return nil
}
