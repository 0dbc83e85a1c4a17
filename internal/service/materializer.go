package service

import (
	"sort"
	"strconv"
	"strings"

	"buy_for_real_go/internal/model"
)

// 本文件实现分组层级的物化：把平铺的 Group 行集合变成带
// level / path / media 注解的节点序列。level 和 path 不落库，
// 每次读取都重新计算，避免并发修改祖先后出现脏数据。

const pathSeparator = "/"

// materializeGroups 物化分组层级。
// 输出保证：
// 1. 每个分组恰好产出一个节点（include 过滤掉的除外）。
// 2. 根节点 level=0，子节点 level=父节点 level+1。
// 3. path 是从根到自身的 id 链（"1/4/9"），整 token 拼接，
//    不会出现 id 1 误匹配 id 12 的子串问题。
// 4. 输出顺序是按 path token 序列的遍历序：父节点一定先于子节点，
//    兄弟节点连续出现（消费方靠这一点单遍建树）。
// 5. 每个节点的 Media 只含 groupId 等于自身 id 的行，没有媒体时为空数组。
//
// 孤儿策略（确定性）：parentID 指向不存在的行时，该节点按根节点
// 处理（level=0，path 为自身 id），不丢节点，存储层不做修复。
// include 为 nil 表示不过滤；非 nil 时只输出 include 中为 true 的分组。
func materializeGroups(groups []model.Group, media []model.Media, include map[uint]bool) []model.GroupNode {
	byID := make(map[uint]*model.Group, len(groups))
	for i := range groups {
		byID[groups[i].ID] = &groups[i]
	}

	mediaByGroup := make(map[uint][]model.Media, len(groups))
	for _, m := range media {
		mediaByGroup[m.GroupID] = append(mediaByGroup[m.GroupID], m)
	}

	// parent id -> 子分组，0 代表根（含孤儿）
	children := make(map[uint][]*model.Group, len(groups))
	var roots []*model.Group
	for i := range groups {
		g := &groups[i]
		if include != nil && !include[g.ID] {
			continue
		}
		if g.ParentID == nil {
			roots = append(roots, g)
			continue
		}
		if _, ok := byID[*g.ParentID]; !ok {
			// 孤儿：父行不存在，按根处理
			roots = append(roots, g)
			continue
		}
		children[*g.ParentID] = append(children[*g.ParentID], g)
	}

	sortByID(roots)
	for _, cs := range children {
		sortByID(cs)
	}

	// 迭代 DFS，把 level 和 path 沿树向下传递。
	// 子节点按 id 升序访问，整体输出即 path token 序的字典序。
	nodes := make([]model.GroupNode, 0, len(groups))
	type frame struct {
		group *model.Group
		level int
		path  string
	}
	var walk func(f frame)
	walk = func(f frame) {
		groupMedia := mediaByGroup[f.group.ID]
		if groupMedia == nil {
			groupMedia = []model.Media{}
		}
		nodes = append(nodes, model.GroupNode{
			ID:       f.group.ID,
			Name:     f.group.Name,
			Slug:     f.group.Slug,
			ParentID: f.group.ParentID,
			Level:    f.level,
			Path:     f.path,
			Media:    groupMedia,
		})
		for _, child := range children[f.group.ID] {
			walk(frame{
				group: child,
				level: f.level + 1,
				path:  f.path + pathSeparator + formatID(child.ID),
			})
		}
	}
	for _, root := range roots {
		walk(frame{group: root, level: 0, path: formatID(root.ID)})
	}
	return nodes
}

// subtreeIDs 返回以 rootID 为根的整棵子树的分组 id，广度优先，
// 即保证父节点总排在子节点之前。rootID 不存在时返回空。
func subtreeIDs(groups []model.Group, rootID uint) []uint {
	children := make(map[uint][]uint, len(groups))
	exists := make(map[uint]bool, len(groups))
	for _, g := range groups {
		exists[g.ID] = true
		if g.ParentID != nil {
			children[*g.ParentID] = append(children[*g.ParentID], g.ID)
		}
	}
	if !exists[rootID] {
		return nil
	}

	ids := []uint{rootID}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, children[ids[i]]...)
	}
	return ids
}

// qualifyingSet 计算过滤视图的入选集合：打了标记的分组自身，
// 加上它们的全部祖先。自底向上推导等价于
// “某分组或其任意子孙携带标记则入选”，无需逐节点做子树扫描。
func qualifyingSet(groups []model.Group, taggedGroupIDs map[uint]bool) map[uint]bool {
	parentOf := make(map[uint]*uint, len(groups))
	for _, g := range groups {
		parentOf[g.ID] = g.ParentID
	}

	include := make(map[uint]bool, len(taggedGroupIDs))
	for id := range taggedGroupIDs {
		cur := id
		for {
			if include[cur] {
				break // 该祖先链已处理过（也挡住了意外的环）
			}
			parent, known := parentOf[cur]
			if !known {
				break // 标记指向不存在的分组，忽略
			}
			include[cur] = true
			if parent == nil {
				break
			}
			cur = *parent
		}
	}
	return include
}

func sortByID(groups []*model.Group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// pathTokens 把 path 拆回 id token 序列，测试和调试用。
func pathTokens(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, pathSeparator)
}
