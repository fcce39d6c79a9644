// Package analyzer reconciles JX3 chat logs into per-run ledger records.
//
// The engine is pure: it reads only the lines and sidecar entries handed
// to it and keeps no state between calls. Files, stores and the dedup
// ledger live in the source, store and pipeline packages.
package analyzer

import "regexp"

// Event templates printed by the game client. The set is closed.
var (
	startPattern      = regexp.MustCompile(`^你悄悄地对\[[^\]]+\]说：开始自动记录\[(.*?)\]$`)
	endPattern        = regexp.MustCompile(`^你悄悄地对\[[^\]]+\]说：结束自动记录\[(.*?)\]$`)
	teamIncomePattern = regexp.MustCompile(`\[房间\]\[([^\]]+)\]：拍团目前总收入为：(\d+)金，补贴总费用：(\d+)金，\s*实际可用分配金额：(\d+)金，\s*分配人数：(\d+)，\s*每人底薪：(\d+)金`)
	purchasePattern   = regexp.MustCompile(`\[房间\]\[([^\]]+)\]：\[([^\]]+)\]花费\[(.*?)\]购买了\[(.*?)\]`)
	penaltyPattern    = regexp.MustCompile(`\[房间\]\[([^\]]+)\]：.*?向团队里追加了\[(\d+金砖(?:\d+金)?|\d+金)\]`)

	teamSpeakerPattern = regexp.MustCompile(`^\[团队\]\[([^\]]+)\]`)
	roomSpeakerPattern = regexp.MustCompile(`^\[房间\]\[([^\]]+)\]`)
)

const (
	teamChannel = "[团队]"
	roomChannel = "[房间]"

	combatStartPhrase = "【团队倒计时】战斗开始！"
	incomePhrase      = "拍团目前总收入为"
)

// awardFragments must all appear in a tier-1 leader announcement.
var awardFragments = []string{"将[", "以[", "记录给了["}

// Note tokens appended by the finalizer.
const (
	lieDownToken = "躺拍"
	noteSep      = "，"
)

// Keywords classifies non-special purchases by substring.
type Keywords struct {
	Scattered []string `toml:"scattered_keywords"`
	Iron      []string `toml:"iron_keywords"`
}

// DefaultKeywords returns the built-in category keywords.
func DefaultKeywords() Keywords {
	return Keywords{
		Scattered: []string{"五行石", "五彩石", "上品茶饼", "猫眼石", "玛瑙"},
		Iron:      []string{"陨铁"},
	}
}

// MatchStart returns the descriptor of a session-start marker line.
func MatchStart(text string) (string, bool) {
	if m := startPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// MatchEnd returns the descriptor of a session-end marker line.
func MatchEnd(text string) (string, bool) {
	if m := endPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}
