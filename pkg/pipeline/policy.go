package pipeline

import (
	"github.com/shouni/go-manga-pipeline/pkg/domain"
	"github.com/shouni/go-manga-pipeline/pkg/provider"
	"github.com/shouni/go-manga-pipeline/pkg/provider/image"
	"github.com/shouni/go-manga-pipeline/pkg/provider/llm"
)

// ProviderPair は 1 回の生成で使う LLM と画像生成プロバイダの登録名です。
type ProviderPair struct {
	LLM   string
	Image string
}

var tierProviders = map[domain.Tier]ProviderPair{
	domain.TierFree:       {LLM: llm.HuggingFaceName, Image: image.StabilityBasicName},
	domain.TierBasic:      {LLM: llm.OpenAIName, Image: image.StabilityStandardName},
	domain.TierPro:        {LLM: llm.OpenAIName, Image: image.StabilityCreativeName},
	domain.TierEnterprise: {LLM: llm.AnthropicName, Image: image.MidjourneyName},
}

var tierQuality = map[domain.Tier]provider.ImageParams{
	domain.TierFree:       {Width: 512, Height: 512, Steps: 30, Guidance: 7},
	domain.TierBasic:      {Width: 768, Height: 768, Steps: 40, Guidance: 7.5},
	domain.TierPro:        {Width: 1024, Height: 1024, Steps: 50, Guidance: 8},
	domain.TierEnterprise: {Width: 1536, Height: 1536, Steps: 60, Guidance: 9},
}

// ProvidersFor は階層の既定プロバイダを返します。未知の階層は FREE と同じです。
func ProvidersFor(tier domain.Tier) ProviderPair {
	if p, ok := tierProviders[tier]; ok {
		return p
	}
	return tierProviders[domain.TierFree]
}

// QualityFor は階層の画像品質パラメータを返します。未知の階層は FREE と同じです。
func QualityFor(tier domain.Tier) provider.ImageParams {
	if q, ok := tierQuality[tier]; ok {
		return q
	}
	return tierQuality[domain.TierFree]
}
