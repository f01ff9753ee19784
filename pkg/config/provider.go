package config

import (
	"fmt"
	"sort"

	"github.com/wentf9/ufwctl/pkg/models"
	"github.com/wentf9/ufwctl/pkg/utils/concurrent"
)

type Provider struct {
	cfg         *Configuration
	lookupIndex *concurrent.Map[string, string]
}

func NewProvider(cfg *Configuration) ConfigProvider {
	provider := Provider{
		cfg:         cfg,
		lookupIndex: concurrent.NewMap[string, string](concurrent.HashString),
	}
	for _, nodeId := range cfg.Nodes.Keys() {
		provider.index(nodeId)
	}
	return provider
}

// index 将节点的全部标识符(名称 / user@addr:port / 地址 / 别名)加入索引
func (cp Provider) index(nodeId string) {
	node, ok := cp.GetNode(nodeId)
	if !ok {
		return
	}
	cp.lookupIndex.Set(nodeId, nodeId)
	for _, alias := range node.Alias {
		if alias != "" {
			cp.lookupIndex.Set(alias, nodeId)
		}
	}
	host, ok := cp.GetHost(node.HostRef)
	if !ok {
		return
	}
	if _, taken := cp.lookupIndex.Get(host.Address); !taken {
		cp.lookupIndex.Set(host.Address, nodeId)
	}
	if identity, ok := cp.GetIdentity(node.IdentityRef); ok && identity.User != "" {
		cp.lookupIndex.Set(fmt.Sprintf("%s@%s:%d", identity.User, host.Address, host.Port), nodeId)
	}
}

// Find 匹配用户输入, 未找到返回空串
func (cp Provider) Find(input string) string {
	if nodeId, ok := cp.lookupIndex.Get(input); ok {
		return nodeId
	}
	return ""
}

func (cp Provider) GetNode(nodeId string) (models.Node, bool) {
	return cp.cfg.Nodes.Get(nodeId)
}

func (cp Provider) GetHost(hostRef string) (models.Host, bool) {
	return cp.cfg.Hosts.Get(hostRef)
}

func (cp Provider) GetIdentity(identityRef string) (models.Identity, bool) {
	return cp.cfg.Identities.Get(identityRef)
}

func (cp Provider) AddNode(nodeId string, node models.Node) {
	cp.cfg.Nodes.Set(nodeId, node)
	cp.index(nodeId)
}

func (cp Provider) AddHost(hostRef string, host models.Host) {
	cp.cfg.Hosts.Set(hostRef, host)
}

func (cp Provider) AddIdentity(identityRef string, identity models.Identity) {
	cp.cfg.Identities.Set(identityRef, identity)
}

// DeleteNode 删除节点及其索引; Host 和 Identity 可能被其他节点引用, 仅在无人引用时删除
func (cp Provider) DeleteNode(nodeId string) error {
	node, ok := cp.cfg.Nodes.Pop(nodeId)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeId)
	}
	for _, key := range cp.lookupIndex.Keys() {
		if val, ok := cp.lookupIndex.Get(key); ok && val == nodeId {
			cp.lookupIndex.Remove(key)
		}
	}
	hostUsed, idUsed := false, false
	cp.cfg.Nodes.IterCb(func(_ string, n models.Node) bool {
		hostUsed = hostUsed || n.HostRef == node.HostRef
		idUsed = idUsed || n.IdentityRef == node.IdentityRef
		return !(hostUsed && idUsed)
	})
	if !hostUsed {
		cp.cfg.Hosts.Remove(node.HostRef)
	}
	if !idUsed {
		cp.cfg.Identities.Remove(node.IdentityRef)
	}
	return nil
}

func (cp Provider) ListNodes() map[string]models.Node {
	return cp.cfg.Nodes.Snapshot()
}

func (cp Provider) GetNodesByTag(tag string) map[string]models.Node {
	nodes := make(map[string]models.Node)
	cp.cfg.Nodes.IterCb(func(name string, n models.Node) bool {
		if n.HasTag(tag) {
			nodes[name] = n
		}
		return true
	})
	return nodes
}

func (cp Provider) Settings() models.Settings {
	return cp.cfg.Settings
}

// SortedNames 返回排序后的节点名, 使批量输出稳定
func SortedNames(nodes map[string]models.Node) []string {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
