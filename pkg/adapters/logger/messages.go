package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Recording %s started":              "録画 %s を開始しました",
		"Recording %s saved (%.1fs)":        "録画 %s を保存しました (%.1f秒)",
		"Recording %s deleted":              "録画 %s を削除しました",
		"Stopping recording %s before exit": "終了前に録画 %s を停止します",
		"Rendering %s":                      "%s をレンダリング中",
		"Output saved to %s":                "出力を %s に保存しました",
		"Copied %s to %s":                   "%s を %s にコピーしました",
		"Project of %s saved":               "%s のプロジェクトを保存しました",
		"Interrupted, shutting down...":     "中断されました。シャットダウン中...",

		// Warnings
		"Library watch stopped: %v":                           "ライブラリの監視が停止しました: %v",
		"Closing editor of %s failed: %v":                     "%s のエディタを閉じられませんでした: %v",
		"Closing a source failed: %v":                         "キャプチャソースを閉じられませんでした: %v",
		"Discarding unreadable render %s: %v":                 "読み込めないレンダリング結果 %s を破棄します: %v",
		"Failed to remove partial directory %s: %v":           "作成途中のディレクトリ %s を削除できませんでした: %v",
		"Failed to save debug output: %v":                     "デバッグ出力を保存できませんでした: %v",
		"Frame stream server stopped: %v":                     "フレーム配信サーバが停止しました: %v",
		"Ignoring saved project of %s: %v":                    "%s の保存済みプロジェクトを無視します: %v",
		"Saved project of %s is unusable, using defaults: %v": "%s の保存済みプロジェクトは使用できないため既定値を使います: %v",
		"No preview for %s: %v":                               "%s のプレビューを作成できませんでした: %v",
		"Playback of %s failed at frame %d: %v":               "%s の再生がフレーム %d で失敗しました: %v",
		"Playing %s without cursor: %v":                       "カーソルなしで %s を再生します: %v",
		"Rendering %s without cursor: %v":                     "カーソルなしで %s をレンダリングします: %v",
		"Screen grab failed: %v":                              "画面の取得に失敗しました: %v",
		"Watch error: %v":                                     "監視エラー: %v",
		"Encoding a websocket message failed: %v":             "WebSocketメッセージのエンコードに失敗しました: %v",

		// Errors
		"Event handler panicked for %s: %v\n%s": "%s のイベントハンドラでパニックが発生しました: %v\n%s",
	})
}
