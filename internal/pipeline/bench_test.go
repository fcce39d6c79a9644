package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/theirongolddev/runledger/internal/model"
)

func BenchmarkRun(b *testing.B) {
	files := make(map[string][]model.ChatLine)
	for i := range 8 {
		var lines []model.ChatLine
		for j := range 50 {
			lines = append(lines, runLines(int64(1700000000+i*100000+j*100), 1000+j)...)
		}
		files[fmt.Sprintf("%02d.db", i)] = lines
	}
	f := folderWith(b, "小明", files)

	for b.Loop() {
		res, err := Run(context.Background(), []model.Folder{f}, Options{Analyzer: testAnalyzer()})
		if err != nil {
			b.Fatal(err)
		}
		if res.Summary.Produced == 0 {
			b.Fatal("no records produced")
		}
	}
}
