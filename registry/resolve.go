package registry

import "sort"

// resolve 计算初始化顺序
//
// 先检查缺失依赖，再用 Kahn 算法排序；多个就绪节点中声明顺序靠前者优先，
// 因此无依赖关系的描述符保持注册顺序。
func resolve(kind string, declared []*entry) ([]*entry, error) {
	byID := make(map[string]*entry, len(declared))
	for _, e := range declared {
		byID[e.id] = e
	}
	for _, e := range declared {
		for _, dep := range e.deps {
			if _, ok := byID[dep]; !ok {
				return nil, missingDependency(kind, e.id, dep)
			}
		}
	}

	indegree := make(map[string]int, len(declared))
	dependents := make(map[string][]*entry, len(declared))
	var ready []*entry
	for _, e := range declared {
		indegree[e.id] = len(e.deps)
		for _, dep := range e.deps {
			dependents[dep] = append(dependents[dep], e)
		}
		if len(e.deps) == 0 {
			ready = append(ready, e)
		}
	}

	order := make([]*entry, 0, len(declared))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, d := range dependents[next.id] {
			indegree[d.id]--
			if indegree[d.id] == 0 {
				ready = insertBySeq(ready, d)
			}
		}
	}

	if len(order) == len(declared) {
		return order, nil
	}

	var blocked []string
	for _, e := range declared {
		if indegree[e.id] > 0 {
			blocked = append(blocked, e.id)
		}
	}
	return nil, cyclicDependency(kind, findCycle(blocked[0], byID, indegree), blocked)
}

func insertBySeq(list []*entry, e *entry) []*entry {
	i := sort.Search(len(list), func(i int) bool { return list[i].seq > e.seq })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = e
	return list
}

// findCycle 从一个未能排序的节点出发，沿着同样未排序的依赖前进直到重复，返回环路径
func findCycle(start string, byID map[string]*entry, indegree map[string]int) []string {
	var path []string
	pos := make(map[string]int)
	cur := start
	for {
		if p, seen := pos[cur]; seen {
			return append(path[p:], cur)
		}
		pos[cur] = len(path)
		path = append(path, cur)
		next := ""
		for _, dep := range byID[cur].deps {
			if indegree[dep] > 0 {
				next = dep
				break
			}
		}
		if next == "" {
			return path
		}
		cur = next
	}
}
