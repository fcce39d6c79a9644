package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/runledger/internal/model"
)

// ErrUnknownDungeon is returned when a name is not in the catalog.
var ErrUnknownDungeon = errors.New("unknown dungeon")

// presetDrops lists the built-in dungeons in resolver priority order.
var presetDrops = []struct {
	name  string
	drops string
}{
	{"狼牙堡·狼神殿", "阿豪（宠物）,遗忘的书函（外观）,醉月玄晶（95级）"},
	{"敖龙岛", "赤纹野正宗（腰部挂件）,隐狐匿踪（特殊面部）,木木（宠物）,星云踏月骓（普通坐骑）,归墟玄晶（100级）"},
	{"范阳夜变", "簪花空竹（腰部挂件）,弃身·肆（特殊腰部）,幽明录（宠物）,润州绣舞筵（家具）,聆音（特殊腰部）,夜泊蝶影（披风）,归墟玄晶（100级）"},
	{"达摩洞", "活色生香（腰部挂件）,冰蚕龙渡（腰部挂件）,猿神发带（头饰）,漫漫香罗（奇趣坐骑）,阿修罗像（家具）,天乙玄晶（110级）"},
	{"白帝江关", "鲤跃龙门（背部挂件）,血佑铃（腰部挂件）,御马踏金·头饰（马具）,御马踏金·鞍饰（马具）,御马踏金·足饰（马具）,御马踏金（马具）,飞毛将军（普通坐骑）,阔豪（脚印）,天乙玄晶（110级）"},
	{"雷域大泽", "大眼崽（宠物）,灵虫石像（家具）,脊骨王座（家具）,掠影无迹（背部挂件）,荒原切（腰部挂件）,游空竹翼（背部挂件）,天乙玄晶（110级）"},
	{"河阳之战", "爆炸（头顶表情）,北拒风狼（家具）,百战同心（家具）,云鹤报捷（玩具）,玄域辟甲·头饰（马具）,玄域辟甲·鞍饰（马具）,玄域辟甲·足饰（马具）,玄域辟甲（马具）,扇风耳（宠物）,墨言（特殊背部）,天乙玄晶（110级）"},
	{"西津渡", "卯金修德（背部挂件）,相思尽（腰部挂件）,比翼剪（背部挂件）,静子（宠物）,泽心龙头像（家具）,焚金阙（外观）,赤发狻猊（头饰）,太一玄晶（120级）"},
	{"武狱黑牢", "驭己刃（腰部挂件）,象心灵犀（玩具）,心定（头饰）,幽兰引芳（脚印）,武氏挂旗（家具）,白鬼血泣（披风）,太一玄晶（120级）"},
	{"九老洞", "武圣（背部挂件）,不渡（特殊腰部）,灵龟·卜逆（奇趣坐骑）,朱雀·灼（家具）,青龙·木（家具）,麒麟·祝瑞（宠物）,幻月（特殊腰部）,太一玄晶（120级）"},
	{"冷龙峰", "涉海翎（帽子）,透骨香（腰部挂件）,转珠天轮（玩具）,鸷（宠物）,炽芒·邪锋（特殊腰部）,祆教神鸟像（家具）,太一玄晶（120级）"},
}

// PresetDungeons returns a fresh copy of the built-in catalog.
func PresetDungeons() []model.Dungeon {
	out := make([]model.Dungeon, len(presetDrops))
	for i, p := range presetDrops {
		out[i] = model.Dungeon{Name: p.name, SpecialDrops: SplitDrops(p.drops)}
	}
	return out
}

// SplitDrops splits a drop list separated by commas (half or full width)
// or square brackets, trimming blanks and duplicates.
func SplitDrops(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', '，', '[', ']', '、', '\n':
			return true
		}
		return false
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// presetFile is the YAML layout accepted by LoadPresets.
type presetFile struct {
	Dungeons []model.Dungeon `yaml:"dungeons"`
}

// LoadPresetsFile reads additional dungeon presets from a YAML file.
func LoadPresetsFile(path string) ([]model.Dungeon, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied import file
	if err != nil {
		return nil, fmt.Errorf("opening presets %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ds, err := LoadPresets(f)
	if err != nil {
		return nil, fmt.Errorf("parsing presets %q: %w", path, err)
	}
	return ds, nil
}

// LoadPresets decodes presets from r, rejecting unknown keys.
func LoadPresets(r io.Reader) ([]model.Dungeon, error) {
	var pf presetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("decode presets yaml: %w", err)
	}
	var errs []error
	for i, d := range pf.Dungeons {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Errorf("dungeons[%d]: name is required", i))
		}
	}
	return pf.Dungeons, errors.Join(errs...)
}

// suggestThreshold is the minimum Jaro-Winkler similarity for a suggestion.
const suggestThreshold = 0.6

// FindDungeon looks name up in catalog. On a miss the error wraps
// ErrUnknownDungeon and names the closest entries.
func FindDungeon(catalog []model.Dungeon, name string) (model.Dungeon, error) {
	for _, d := range catalog {
		if d.Name == name {
			return d, nil
		}
	}
	if s := Suggest(catalog, name, 3); len(s) > 0 {
		return model.Dungeon{}, fmt.Errorf("%w %q (did you mean %s?)", ErrUnknownDungeon, name, strings.Join(s, ", "))
	}
	return model.Dungeon{}, fmt.Errorf("%w %q", ErrUnknownDungeon, name)
}

// Suggest returns up to n catalog names closest to name, best first.
func Suggest(catalog []model.Dungeon, name string, n int) []string {
	type scored struct {
		name  string
		score float64
	}
	if strings.TrimSpace(name) == "" {
		return nil
	}
	var cands []scored
	for _, d := range catalog {
		score := matchr.JaroWinkler(name, d.Name, false)
		if strings.Contains(d.Name, name) || strings.Contains(name, d.Name) {
			score = max(score, 0.9)
		}
		if score >= suggestThreshold {
			cands = append(cands, scored{d.Name, score})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	out := make([]string, 0, min(n, len(cands)))
	for i := 0; i < len(cands) && i < n; i++ {
		out = append(out, cands[i].name)
	}
	return out
}
