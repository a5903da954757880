// Package main provides localization for the framegrab CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration": "設定",
		"Decoding":      "デコード",
		"Logging":       "ログ",
		"Extraction":    "抽出",
		"Image":         "画像",
		"Output":        "出力先",
		"Observability": "可観測性",

		// Root command
		"Extract single frames from video files by frame number": "フレーム番号を指定して動画ファイルから単一フレームを抽出",
		"framegrab seeks to the nearest keyframe, decodes forward to the requested frame and writes it as an image.": "framegrabは直前のキーフレームへシークし、指定フレームまでデコードして画像として書き出します。",

		// Commands
		"Extract frames as images":                "フレームを画像として抽出",
		"List the keyframes of the video stream":  "映像ストリームのキーフレームを一覧表示",
		"Show streams and the frame index":        "ストリームとフレームインデックスを表示",
		"Show version information":                "バージョン情報を表示",
		"framegrab version %s":                    "framegrab バージョン %s",

		// Common flags
		"YAML configuration file":              "YAML設定ファイル",
		"Path to the ffmpeg executable":        "ffmpeg実行ファイルのパス",
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Log format (console, json)":           "ログ形式（console, json）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Extraction flags
		"Frame numbers to extract, e.g. 0,30,100-110":                "抽出するフレーム番号（例: 0,30,100-110）",
		"Image formats (ppm, png, jpeg, bmp, tiff), comma separated": "画像形式（ppm, png, jpeg, bmp, tiff、カンマ区切り）",
		"Addressing strategy (auto, index, estimate)":                "フレーム特定方式（auto, index, estimate）",
		"Packets to read per frame before giving up (0 = unlimited)": "1フレームあたりの最大読み込みパケット数（0 = 無制限）",
		"Keep extracting after a failed frame":                       "失敗したフレームがあっても抽出を続行",

		// Image flags
		"JPEG quality (1-100)": "JPEG品質（1-100）",
		"Scale images to this width, keeping the aspect ratio": "アスペクト比を保ってこの幅に縮小",
		"Draw the frame number and timestamp on each image":    "各画像にフレーム番号とタイムスタンプを描画",

		// Output flags
		"Output kind (dir, s3, discard)":                     "出力先の種類（dir, s3, discard）",
		"Output execution summary to file (Markdown format)": "実行サマリーをファイルに出力（Markdown形式）",

		// Observability flags
		"Write Prometheus metrics to this file after the run":                 "実行後にPrometheusメトリクスをこのファイルに書き出す",
		"OTLP/HTTP endpoint for traces, e.g. http://localhost:4318/v1/traces": "トレース送信先のOTLP/HTTPエンドポイント（例: http://localhost:4318/v1/traces）",

		// Error messages
		"input argument is required": "入力ファイルの引数が必要です",
		"no frame number given":      "フレーム番号が指定されていません",

		// Runtime messages
		"Failed to write metrics: %s": "メトリクスの書き込みに失敗しました: %s",
		"Failed to write summary: %s": "サマリーの書き込みに失敗しました: %s",

		// Summary content
		"Extraction Summary":   "抽出サマリー",
		"Input":                "入力",
		"Settings":             "設定",
		"Frames":               "フレーム",
		"Totals":               "集計",
		"Item":                 "項目",
		"Value":                "値",
		"File":                 "ファイル",
		"Stream":               "ストリーム",
		"Size":                 "サイズ",
		"Time Base":            "タイムベース",
		"Frame Rate":           "フレームレート",
		"Index Entries":        "インデックス件数",
		"N/A":                  "なし",
		"Strategy":             "方式",
		"Formats":              "形式",
		"JPEG Quality":         "JPEG品質",
		"Width":                "幅",
		"Stamp":                "スタンプ",
		"Yes":                  "あり",
		"Max Packets":          "最大パケット数",
		"No frames requested.": "フレームが指定されていません。",
		"Frame":                "フレーム番号",
		"Ordinal":              "序数",
		"Timestamp":            "タイムスタンプ",
		"Packets":              "パケット",
		"Time":                 "時間",
		"Result":               "結果",
		"Failed":               "失敗",
		"estimated":            "推定",
		"Matched":              "一致",
		"Succeeded":            "成功",
		"Written":              "書き込み量",
		"Total Duration":       "合計時間",
		"Generated at":         "生成日時",
	})
}
