package config

import (
	"errors"

	"github.com/wentf9/ufwctl/pkg/models"
	"github.com/wentf9/ufwctl/pkg/utils/concurrent"
)

var ErrNodeNotFound = errors.New("node not found")

// Configuration 对应 yaml 文件的顶层结构
type Configuration struct {
	Settings   models.Settings                          `yaml:"settings,omitempty"`
	Identities *concurrent.Map[string, models.Identity] `yaml:"identities"`
	Hosts      *concurrent.Map[string, models.Host]     `yaml:"hosts"`
	Nodes      *concurrent.Map[string, models.Node]     `yaml:"nodes"`
}

// NewConfiguration 创建空配置, 解码前必须先初始化各个 Map
func NewConfiguration() *Configuration {
	return &Configuration{
		Identities: concurrent.NewMap[string, models.Identity](concurrent.HashString),
		Hosts:      concurrent.NewMap[string, models.Host](concurrent.HashString),
		Nodes:      concurrent.NewMap[string, models.Node](concurrent.HashString),
	}
}

// ConfigProvider 定义 Connector 与命令获取配置数据的接口
type ConfigProvider interface {
	GetNode(name string) (models.Node, bool)
	GetHost(name string) (models.Host, bool)
	GetIdentity(name string) (models.Identity, bool)
	AddHost(name string, host models.Host)
	AddIdentity(name string, identity models.Identity)
	AddNode(name string, node models.Node)
	DeleteNode(name string) error
	ListNodes() map[string]models.Node
	GetNodesByTag(tag string) map[string]models.Node
	Find(input string) string
	Settings() models.Settings
}
