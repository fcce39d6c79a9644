package analyzer

import (
	"fmt"
	"time"

	"github.com/theirongolddev/runledger/internal/model"
)

const testWorker = "小明"

var testDungeons = []model.Dungeon{
	{Name: "西津渡", SpecialDrops: []string{"卯金修德（背部挂件）", "静子（宠物）", "太一玄晶（120级）"}},
	{Name: "武狱黑牢", SpecialDrops: []string{"驭己刃（腰部挂件）", "白鬼血泣（披风）"}},
	{Name: "冷龙峰", SpecialDrops: []string{"透骨香（腰部挂件）", "鸷（宠物）"}},
}

func testAnalyzer() *Analyzer {
	return New(NewResolver(testDungeons), DefaultKeywords(), time.UTC)
}

func line(ts int64, text string) model.ChatLine {
	return model.ChatLine{Time: ts, Text: text}
}

func startLine(ts int64, desc string) model.ChatLine {
	return line(ts, fmt.Sprintf("你悄悄地对[记录助手]说：开始自动记录[%s]", desc))
}

func endLine(ts int64, desc string) model.ChatLine {
	return line(ts, fmt.Sprintf("你悄悄地对[记录助手]说：结束自动记录[%s]", desc))
}

func incomeLine(ts int64, leader string, total, subsidy, distributable, headcount, base int) model.ChatLine {
	return line(ts, fmt.Sprintf(
		"[房间][%s]：拍团目前总收入为：%d金，补贴总费用：%d金，实际可用分配金额：%d金，分配人数：%d，每人底薪：%d金",
		leader, total, subsidy, distributable, headcount, base))
}

func purchaseLine(ts int64, leader, buyer, price, item string) model.ChatLine {
	return line(ts, fmt.Sprintf("[房间][%s]：[%s]花费[%s]购买了[%s]", leader, buyer, price, item))
}

func penaltyLine(ts int64, who, amount string) model.ChatLine {
	return line(ts, fmt.Sprintf("[房间][%s]：因迟到向团队里追加了[%s]", who, amount))
}

func combatLine(ts int64, who string) model.ChatLine {
	return line(ts, fmt.Sprintf("[团队][%s]：【团队倒计时】战斗开始！", who))
}

func awardLine(ts int64, who string) model.ChatLine {
	return line(ts, fmt.Sprintf("[房间][%s]：将[五行石]以[100金]记录给了[路人]", who))
}

// payoutMsg renders a payout payload the way the client embeds it in chat rows.
func payoutMsg(pairs ...any) string {
	s := "你获得："
	for i := 0; i+1 < len(pairs); i += 2 {
		s += fmt.Sprintf(`<text text="%v" font=105 name="Text_%v" />`, pairs[i], pairs[i+1])
	}
	return s
}

func payoutLine(ts int64, pairs ...any) model.ChatLine {
	return model.ChatLine{Time: ts, Text: "你获得了金钱", Msg: payoutMsg(pairs...)}
}
