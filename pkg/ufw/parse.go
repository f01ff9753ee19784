package ufw

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	anywhere   = "Anywhere"
	v6Marker   = "(v6)"
	columnSep  = "  "
	commentTag = "#"
)

// 列之间的填充宽度随内容变化, 三个及以上空格统一收敛为两个
var padding = regexp.MustCompile(` {3,}`)

// collapsePadding 将对齐填充折叠为两个空格的列分隔符, 单个空格的多词值(如 "ALLOW IN")保持不变
func collapsePadding(line string) string {
	return padding.ReplaceAllString(line, columnSep)
}

func normalizeColumns(line string) []string {
	return strings.Split(collapsePadding(line), columnSep)
}

// ruleDraft 是单行解析的中间结果, 任何一步失败都会整体丢弃
type ruleDraft struct {
	line    string
	index   int
	columns []string
	port    string
	proto   Protocol
}

// ParseRule 将 `ufw status numbered` 的一行解析为 Rule
// 标题/状态行/空行以及任何形状异常的行都返回 false, 不会返回半成品
func ParseRule(line string) (Rule, bool) {
	d := &ruleDraft{line: strings.TrimSpace(line)}
	for _, step := range []func(*ruleDraft) bool{
		(*ruleDraft).extractIndex,
		(*ruleDraft).splitColumns,
		(*ruleDraft).classifyPort,
	} {
		if !step(d) {
			return Rule{}, false
		}
	}

	source := strings.TrimSpace(d.columns[2])
	r := Rule{
		Index:      d.index,
		Action:     actionNames[strings.TrimSpace(d.columns[1])],
		Protocol:   d.proto,
		Port:       d.port,
		SourceKind: classifySource(source),
		Source:     source,
	}
	if len(d.columns) > 3 {
		r.Comment, r.HasComment = parseComment(d.columns[3:]), true
	}
	return r, true
}

// extractIndex 从原始行读取开头的 "[n]" 序号, 不依赖列切分的结果
func (d *ruleDraft) extractIndex() bool {
	if !strings.HasPrefix(d.line, "[") {
		return false
	}
	end := strings.IndexByte(d.line, ']')
	if end < 0 {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(d.line[1:end]))
	if err != nil || n < 0 {
		return false
	}
	d.index = n
	d.line = strings.TrimSpace(d.line[end+1:])
	return true
}

// splitColumns 切分序号之后的部分; 规则数过百时 "[  5]" 内部也会出现两个空格
func (d *ruleDraft) splitColumns() bool {
	cols := normalizeColumns(d.line)
	// 宽填充下接口标注 "[ g ]" 可能单独占一列, 位于动作列之前
	for len(cols) > 1 && strings.HasPrefix(cols[1], "[") {
		cols = append(cols[:1], cols[2:]...)
	}
	if len(cols) < 3 || cols[2] == "" {
		return false
	}
	d.columns = cols
	return true
}

// classifyPort 拆出端口与协议, 同列中的 "(v6)" 或接口标注会被丢弃
func (d *ruleDraft) classifyPort() bool {
	token := strings.TrimSpace(d.columns[0])
	if i := strings.IndexByte(token, ' '); i >= 0 {
		token = token[:i]
	}
	if token == "" {
		return false
	}
	if strings.EqualFold(token, anywhere) {
		d.port, d.proto = "", ProtocolAny
		return true
	}
	port, proto, found := strings.Cut(token, "/")
	d.port, d.proto = port, ProtocolAny
	if found {
		switch proto {
		case "tcp":
			d.proto = ProtocolTCP
		case "udp":
			d.proto = ProtocolUDP
		}
	}
	return true
}

func classifySource(source string) SourceKind {
	if len(source) >= len(anywhere) && strings.EqualFold(source[:len(anywhere)], anywhere) {
		return SourceAnywhere
	}
	return SourceAddress
}

func parseComment(cols []string) string {
	c := strings.TrimSpace(strings.Join(cols, columnSep))
	return strings.TrimSpace(strings.TrimPrefix(c, commentTag))
}

// ParseLines 并发解析多行输出, 结果保持原始顺序, 非规则行被跳过
func ParseLines(ctx context.Context, lines []string) ([]Rule, error) {
	parsed := make([]Rule, len(lines))
	valid := make([]bool, len(lines))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parsed[i], valid[i] = ParseRule(line)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(lines))
	for i, ok := range valid {
		if ok {
			rules = append(rules, parsed[i])
		}
	}
	return rules, nil
}
