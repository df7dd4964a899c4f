package words

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadSeedFile 读取按分类组织的 YAML 词库文件
//
//	illegal:
//	  - 毒品
//	fraud:
//	  - 传销
func LoadSeedFile(path string) ([]Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeeds(data)
}

// ParseSeeds 解析 YAML 词库，分类按字母序展开
func ParseSeeds(data []byte) ([]Seed, error) {
	var byCategory map[string][]string
	if err := yaml.Unmarshal(data, &byCategory); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var seeds []Seed
	for _, c := range categories {
		for _, w := range byCategory[c] {
			seeds = append(seeds, Seed{Word: w, Category: c})
		}
	}
	return seeds, nil
}
