package ufw

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// AppProfile 是 `ufw app info` 描述的应用配置
type AppProfile struct {
	Name        string   `json:"name" yaml:"name"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Ports       []string `json:"ports" yaml:"ports"`
}

// Apps 列出已注册的应用配置名
func (m *Manager) Apps(ctx context.Context) ([]string, error) {
	out, err := m.run(ctx, "app", "list")
	if err != nil {
		return nil, err
	}
	return parseAppList(out), nil
}

// AppInfo 查询单个应用配置
func (m *Manager) AppInfo(ctx context.Context, name string) (AppProfile, error) {
	if !servicePattern.MatchString(name) {
		return AppProfile{}, fmt.Errorf("invalid service profile: %q", name)
	}
	out, err := m.run(ctx, "app", "info", strconv.Quote(name))
	if err != nil {
		return AppProfile{}, err
	}
	return parseAppInfo(out), nil
}

func parseAppList(out string) []string {
	var apps []string
	started := false
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Available applications") {
			started = true
			continue
		}
		if name := strings.TrimSpace(line); started && name != "" {
			apps = append(apps, name)
		}
	}
	return apps
}

func parseAppInfo(out string) AppProfile {
	var p AppProfile
	inPorts := false
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if inPorts {
			if trimmed != "" {
				p.Ports = append(p.Ports, trimmed)
			}
			continue
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Profile":
			p.Name = value
		case "Title":
			p.Title = value
		case "Description":
			p.Description = value
		case "Port", "Ports":
			inPorts = true
		}
	}
	return p
}
