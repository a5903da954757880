package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Opening %s":                          "%s を開いています",
		"Extracting %d frames from %s":        "%d フレームを %s から抽出中",
		"Frame %d saved to %s":                "フレーム %d を %s に保存しました",
		"Frame %d failed: %v":                 "フレーム %d の抽出に失敗しました: %v",
		"Extracted %d of %d frames in %d ms":  "%d / %d フレームを %d ms で抽出しました",
		"Found %d keyframes in %d frames":     "%d キーフレームが見つかりました (全 %d フレーム)",
		"Interrupted, shutting down...":       "中断されました。シャットダウン中...",
		"Metrics written to %s":               "メトリクスを %s に書き出しました",
		"Summary written to %s":               "サマリーを %s に書き出しました",

		// Locator
		"stream %d (%s %dx%d), %d index entries, %s strategy": "ストリーム %d (%s %dx%d), インデックス %d 件, %s 方式",
		"frame %d: timestamp %d is estimated from the frame rate": "フレーム %d: タイムスタンプ %d はフレームレートからの推定値です",
		"frame %d: target ts %d, seek to ordinal %d (ts %d)":      "フレーム %d: 目標 ts %d, 序数 %d (ts %d) へシーク",
		"frame %d located":                                        "フレーム %d を特定しました",

		// Decode cursor
		"opened stream %d at ordinal %d (ts %d)": "ストリーム %d を序数 %d (ts %d) で開きました",
		"frame %d has no timestamp":              "フレーム %d にタイムスタンプがありません",
		"matched frame %d at ts %d (target %d)":  "フレーム %d が ts %d で一致しました (目標 %d)",

		// Demuxer
		"track %d: %s %s %dx%d, %d samples, %s fps":               "トラック %d: %s %s %dx%d, %d サンプル, %s fps",
		"seek stream %d to %d: sample at offset %d (pts %d)":      "ストリーム %d を %d へシーク: オフセット %d のサンプル (pts %d)",

		// Decoders
		"stream %d: %s decoded with %s":                "ストリーム %d: %s を %s でデコードします",
		"dropping packet at %d before the first keyframe": "最初のキーフレームより前のパケット (%d) を破棄します",
		"dropping leading picture at %d":               "リーディングピクチャ (%d) を破棄します",
		"started %s %dx%d decoder":                     "%s %dx%d デコーダを起動しました",

		// Export
		"wrote %s (%d bytes)": "%s を書き込みました (%d バイト)",
	})
}
