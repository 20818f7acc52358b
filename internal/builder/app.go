package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shouni/go-manga-pipeline/internal/config"
	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/layout"
	"github.com/shouni/go-manga-pipeline/pkg/pipeline"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
	"github.com/shouni/go-manga-pipeline/pkg/publisher"
	"github.com/shouni/go-manga-pipeline/pkg/quota"
	"github.com/shouni/go-manga-pipeline/pkg/store"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// AppContext は、アプリケーション実行に必要な組み立て済みのコンポーネントを保持する
// コマンドはこれだけを受け取れば、どのバックエンドが選ばれたかを意識せずに済みます。
type AppContext struct {
	Config       *config.Config         // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、接続先など）。
	Registry     *provider.Registry     // Registryは、設定に成功したプロバイダだけが登録された登録簿です。
	Stores       *store.Composite       // Storesは、メモリ・Redis・Supabase を束ねた永続化層です。
	Quota        *quota.Service         // Quotaは、ユーザーごとの月間ページ上限を管理します。
	Layout       *layout.Engine         // Layoutは、テンプレートの提案と適用を行います。
	Orchestrator *pipeline.Orchestrator // Orchestratorは、生成リクエスト全体を実行します。
	Reader       remoteio.InputReader   // Readerは、gs:// の入力を読むためのリーダーです。OUTPUT_DIR が未設定なら nil です。
	Writer       remoteio.OutputWriter  // Writerは、成果物を OUTPUT_DIR に書き出すためのライターです。OUTPUT_DIR が未設定なら nil です。

	closers []func() error
}

// Close は接続を閉じます。
func (a *AppContext) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Publish はプロジェクトの構成を OUTPUT_DIR に書き出します。
func (a *AppContext) Publish(ctx context.Context, project *domain.Project) (publisher.PublishResult, error) {
	if a.Writer == nil {
		return publisher.PublishResult{}, fmt.Errorf("書き出しには OUTPUT_DIR の設定が必要です")
	}
	pub, err := publisher.NewMangaPublisher(a.Writer)
	if err != nil {
		return publisher.PublishResult{}, err
	}
	return pub.Publish(ctx, project, publisher.Options{OutputDir: a.Config.OutputDir})
}

// OpenInput はローカルパスまたは gs:// の入力を開きます。
func (a *AppContext) OpenInput(ctx context.Context, path string) (io.ReadCloser, error) {
	if strings.HasPrefix(path, "gs://") {
		if a.Reader == nil {
			return nil, fmt.Errorf("gs:// の入力を読むには OUTPUT_DIR に gs:// を設定してください: %s", path)
		}
		return a.Reader.Open(ctx, path)
	}
	return os.Open(path)
}
