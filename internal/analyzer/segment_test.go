package analyzer

import (
	"reflect"
	"testing"

	"github.com/theirongolddev/runledger/internal/model"
)

func TestSegment_DistinctPairs(t *testing.T) {
	t.Parallel()
	lines := []model.ChatLine{
		startLine(100, "10人西津渡"),
		line(101, "闲聊"),
		endLine(102, "10人西津渡"),
		startLine(200, "25人英雄武狱黑牢"),
		line(201, "闲聊"),
		line(202, "闲聊"),
		endLine(203, "25人英雄武狱黑牢"),
		startLine(300, "10人冷龙峰"),
		endLine(301, "10人冷龙峰"),
	}
	got := Segment(lines)
	want := []SessionRange{
		{StartIndex: 0, EndIndex: 2, StartTime: 100, EndTime: 102, Descriptor: "10人西津渡"},
		{StartIndex: 3, EndIndex: 6, StartTime: 200, EndTime: 203, Descriptor: "25人英雄武狱黑牢"},
		{StartIndex: 7, EndIndex: 8, StartTime: 300, EndTime: 301, Descriptor: "10人冷龙峰"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Segment =\n%+v\nwant\n%+v", got, want)
	}
}

func TestSegment_Idempotent(t *testing.T) {
	t.Parallel()
	lines := []model.ChatLine{
		startLine(1, "A"), startLine(2, "B"), endLine(3, "A"), endLine(4, "B"), endLine(5, "A"),
	}
	first := Segment(lines)
	second := Segment(lines)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("segmentation differs between runs: %v vs %v", first, second)
	}
}

func TestSegment_DescriptorMustMatchExactly(t *testing.T) {
	t.Parallel()
	lines := []model.ChatLine{
		startLine(1, "10人西津渡"),
		endLine(2, "西津渡10人"),
	}
	if got := Segment(lines); len(got) != 0 {
		t.Errorf("reordered descriptor paired: %+v", got)
	}
}

func TestSegment_LowestIndexUnclaimedEnd(t *testing.T) {
	t.Parallel()
	lines := []model.ChatLine{
		startLine(10, "A"),
		startLine(20, "A"),
		endLine(30, "A"),
		endLine(40, "A"),
	}
	got := Segment(lines)
	if len(got) != 2 {
		t.Fatalf("got %d ranges, want 2", len(got))
	}
	if got[0].StartIndex != 0 || got[0].EndIndex != 2 {
		t.Errorf("first range = %d..%d, want 0..2", got[0].StartIndex, got[0].EndIndex)
	}
	if got[1].StartIndex != 1 || got[1].EndIndex != 3 {
		t.Errorf("second range = %d..%d, want 1..3", got[1].StartIndex, got[1].EndIndex)
	}
}

func TestSegment_EndBeforeStartIgnored(t *testing.T) {
	t.Parallel()
	lines := []model.ChatLine{
		endLine(1, "A"),
		startLine(2, "A"),
		line(3, "闲聊"),
	}
	if got := Segment(lines); len(got) != 0 {
		t.Errorf("got %+v, want no ranges", got)
	}
}

func TestSegment_NoMarkers(t *testing.T) {
	t.Parallel()
	if got := Segment([]model.ChatLine{line(1, "a"), endLine(2, "A")}); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
	if got := Segment(nil); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestMatchStart_RequiresWholeLine(t *testing.T) {
	t.Parallel()
	if _, ok := MatchStart("[房间][某人]：你悄悄地对[a]说：开始自动记录[10人西津渡]"); ok {
		t.Error("start marker must begin the line")
	}
	if d, ok := MatchStart("你悄悄地对[a]说：开始自动记录[10人西津渡]"); !ok || d != "10人西津渡" {
		t.Errorf("MatchStart = %q, %v", d, ok)
	}
}
