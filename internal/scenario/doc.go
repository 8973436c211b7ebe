// Package scenario は障害注入下での負荷シナリオ実行機能を提供する。
//
// Runner はインメモリストアへの操作を一定レートで発行し、各操作を
// disruptor.Engine のグループで包んで実行する。遅延や失敗がどのように
// 呼び出し側に現れるかを集計し、レポートを生成する。
//
// # 機能
//
// - レート制御付きの負荷生成（golang.org/x/time/rate）
// - グループのラウンドロビン割り当て
// - 定義済みプリセットシナリオ
// - 実行結果のレポート生成
//
// # プリセットシナリオ
//
// - baseline: 障害注入なしの基本負荷テスト
// - quick: 短時間の動作確認
// - latency: 読み込みと書き込みへの遅延注入
// - flaky: 断続的な失敗
// - outage: 一定時間続く全面障害
//
// # 使用例
//
//	preset, _ := scenario.GetPreset("latency")
//	groups, _ := preset.Groups()
//	engine, _ := disruptor.New(disruptor.WithGroups(groups...))
//	result, err := scenario.New(preset.Config, engine).Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report())
package scenario
