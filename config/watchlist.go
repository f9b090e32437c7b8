package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Watchlist 自选列表（独立于主配置，可热更新）
type Watchlist struct {
	Symbols []SymbolConfig `yaml:"symbols"`
}

// LoadWatchlist 加载自选列表文件
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取自选列表失败: %v", err)
	}

	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("解析自选列表失败: %v", err)
	}

	if err := wl.Normalize(); err != nil {
		return nil, err
	}

	return &wl, nil
}

// Normalize 规范化自选列表：补全行情源代码，过滤非法条目
func (w *Watchlist) Normalize() error {
	for i := range w.Symbols {
		sc := &w.Symbols[i]
		if sc.Name == "" {
			return fmt.Errorf("自选列表中存在空标的名称")
		}
		if sc.Ticker == "" {
			ticker, ok := builtinTickers[sc.Name]
			if !ok {
				return fmt.Errorf("标的 %s 未配置行情源代码且不在内置列表中", sc.Name)
			}
			sc.Ticker = ticker
		}
	}
	return nil
}

// SaveWatchlist 保存自选列表到文件
func SaveWatchlist(wl *Watchlist, path string) error {
	if err := wl.Normalize(); err != nil {
		return err
	}

	data, err := yaml.Marshal(wl)
	if err != nil {
		return fmt.Errorf("序列化自选列表失败: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入自选列表失败: %v", err)
	}

	return nil
}
