// Package main provides localization for the clipdeck CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Record the screen and render polished videos": "画面を録画し、仕上げた動画を書き出す",

		// Global flags
		"Configuration file (YAML)":                             "設定ファイル（YAML）",
		"Log level (debug, info, warn, error)":                  "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                               "すべてのログ出力を抑制",
		"Capture backend (screen, synthetic, screen+synthetic)": "キャプチャバックエンド（screen, synthetic, screen+synthetic）",
		"Recordings directory":                                  "録画の保存ディレクトリ",
		"Write composed frames to the debug directory":          "合成したフレームをデバッグディレクトリに書き出す",

		// Commands
		"List capture devices":                                "キャプチャデバイスを一覧表示",
		"Device kind (screen, window, camera, audio)":         "デバイスの種類（screen, window, camera, audio）",
		"Show capture permission status":                      "キャプチャ権限の状態を表示",
		"Record the screen or a window until interrupted":     "中断されるまで画面またはウィンドウを録画",
		"Capture the window with this id":                     "このIDのウィンドウを録画",
		"Camera label":                                        "カメラ名",
		"Microphone name":                                     "マイク名",
		"Stop after this duration":                            "この時間が経過したら停止",
		"List recordings":                                     "録画を一覧表示",
		"Render a recording to an MP4 file":                   "録画をMP4ファイルに書き出す",
		"Output MP4 file path (required)":                     "出力MP4ファイルパス（必須）",
		"Project configuration file (JSON)":                   "プロジェクト設定ファイル（JSON）",
		"Background color (hex, e.g., #dcdcdc)":               "背景色（16進数、例: #dcdcdc）",
		"Write a Markdown summary of the render to this file": "レンダリングの概要をMarkdownでこのファイルに書き出す",
		"Delete a recording":                                  "録画を削除",
		"Serve the command API over HTTP":                     "コマンドAPIをHTTPで提供",
		"Listen address":                                      "待ち受けアドレス",
		"Show version information":                            "バージョン情報を表示",

		// Messages
		"clipdeck version %s":                      "clipdeck バージョン %s",
		"VIDEO_ID is required":                     "VIDEO_ID を指定してください",
		"Recording to %s, press Ctrl+C to stop":    "%s に録画中です。Ctrl+C で停止します",
		"Rendered frame %d/%d":                     "フレーム %d/%d をレンダリングしました",
		"Serving the command API on http://%s/api": "コマンドAPIを http://%s/api で提供中",
	})
}
