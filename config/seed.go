package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategorySeed 分类种子文件结构
//
//	categories:
//	  - Landscape
//	  - Portrait
type CategorySeed struct {
	Categories []string `yaml:"categories"`
}

// DefaultCategories 未提供种子文件时使用
var DefaultCategories = []string{
	"Abstract",
	"Animals",
	"Architecture",
	"Landscape",
	"Nature",
	"People",
	"Street",
	"Travel",
}

// LoadCategorySeed 读取分类种子文件，文件不存在时返回默认分类
func LoadCategorySeed(path string) ([]string, error) {
	if path == "" {
		return DefaultCategories, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCategories, nil
		}
		return nil, fmt.Errorf("failed to read category seed file: %w", err)
	}

	var seed CategorySeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse category seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(seed.Categories))
	names := make([]string, 0, len(seed.Categories))
	for _, name := range seed.Categories {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}
