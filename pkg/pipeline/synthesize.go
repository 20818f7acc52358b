package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-manga-pipeline/pkg/character"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
)

// synthesize は各パネルの画像を並列に生成し、入力と同じ順序で返します。
// 1 枚でも失敗すると残りの呼び出しはキャンセルされ、エラーを返します。
func (o *Orchestrator) synthesize(
	ctx context.Context,
	logger *slog.Logger,
	img provider.ImageProvider,
	chars *character.Engine,
	panels domain.Panels,
	base provider.ImageParams,
) (domain.Panels, error) {
	out := slices.Clone(panels)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.Concurrency)

	for i := range out {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if o.limiter != nil {
				if err := o.limiter.Wait(egCtx); err != nil {
					return err
				}
			}

			prompt, params := out[i].ImagePrompt, base
			if chars != nil {
				var seed *int64
				if prompt, seed = chars.Inject(prompt); seed != nil {
					params = params.WithSeed(*seed)
				}
			}

			panelLogger := logger.With("panel_index", out[i].Index, "provider", img.Name())
			panelLogger.InfoContext(egCtx, "パネル画像の生成を開始します")
			startTime := time.Now()

			res, err := img.Synthesize(egCtx, prompt, params)
			if err != nil {
				return fmt.Errorf("panel %d generation failed: %w", out[i].Index, err)
			}
			if res == nil || res.Reference == "" {
				return fmt.Errorf("panel %d: %w", out[i].Index,
					domain.NewProviderError(img.Name(), 0, "synthesis returned no image reference", nil))
			}

			out[i].EnhancedPrompt = prompt
			out[i].ImageRef = res.Reference
			panelLogger.InfoContext(egCtx, "パネル画像の生成が完了しました", "duration", time.Since(startTime).Round(time.Millisecond))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
