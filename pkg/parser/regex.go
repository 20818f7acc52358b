package parser

import "regexp"

var (
	// JSONBlockRegex は ```json ... ``` 形式のコードブロック本文をキャプチャします。
	JSONBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

	// PanelMarkerRegex は "Panel 1:" や "panel 2 -" のようなパネル区切りを特定します。
	PanelMarkerRegex = regexp.MustCompile(`(?i)panel\s*(\d+)\s*[:\-]`)

	// NumberedMarkerRegex は "1. " や "2) " のような番号付きリストの先頭を特定します。
	// 直前が行頭か空白であることを要求し、"3.5" や "1990." のような数値には反応しません。
	NumberedMarkerRegex = regexp.MustCompile(`(?:^|\s)(\d{1,3})[.)]\s+`)

	// ImagePromptRegex はパネル本文中の "Image prompt:" 以降を画像プロンプトとして分離します。
	ImagePromptRegex = regexp.MustCompile(`(?is)^(.*?)\s*image[\s_-]*prompt\s*[:\-]\s*(.*)$`)
)
